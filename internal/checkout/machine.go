// Package checkout drives one payment-sheet checkout attempt at a time,
// from the buy tap through tokenization and charge to settlement.
//
// The presentation layer forwards three lifecycle events into a Machine
// (purchase initiated, credential authorized, flow finished) and renders
// the State snapshots the Machine publishes after every mutation.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliamunaev/checkout-pipeline/internal/dispatch"
	"github.com/iliamunaev/checkout-pipeline/internal/metrics"
	"github.com/iliamunaev/checkout-pipeline/internal/tracing"
)

type trigger string

const (
	triggerPurchaseInitiated    trigger = "purchase_initiated"
	triggerCredentialAuthorized trigger = "credential_authorized"
	triggerChargeSucceeded      trigger = "charge_succeeded"
	triggerChargeDeclined       trigger = "charge_declined"
	triggerTokenFailed          trigger = "token_failed"
	triggerFlowFinished         trigger = "flow_finished"
	triggerReset                trigger = "reset"
)

const (
	stageTokenize = "tokenize"
	stageCharge   = "charge"
)

// ResultFunc receives the disposition of an attempt. It is the completion
// handler the payment authority waits on before dismissing its sheet.
type ResultFunc func(Disposition)

type observer struct {
	id int
	fn func(State)
}

// attempt holds what lives exactly as long as one attempt.
type attempt struct {
	ctx     context.Context
	cancel  context.CancelFunc
	span    tracing.Span
	started time.Time
}

// Machine is the checkout state machine.
//
// All methods are safe for concurrent use. Observers and result callbacks
// run on a single dispatch goroutine, in mutation order, never under the
// machine lock; they may call back into the Machine.
type Machine struct {
	product Product
	tokens  TokenProvider
	charges ChargeService

	logger  *slog.Logger
	metrics metrics.Metrics
	tracer  tracing.Tracer
	fatal   func(error)
	newID   func() string

	queue *dispatch.Queue
	wg    sync.WaitGroup

	mu         sync.Mutex
	sm         *stateless.StateMachine
	state      State
	authorized bool
	current    *attempt
	pending    ResultFunc
	observers  []observer
	nextObs    int
	closed     bool
}

// New returns an idle Machine for product. It panics if a collaborator is nil.
func New(product Product, tokens TokenProvider, charges ChargeService, opts ...Option) *Machine {
	if tokens == nil {
		panic("checkout.New: nil token provider")
	}
	if charges == nil {
		panic("checkout.New: nil charge service")
	}

	m := &Machine{
		product: product,
		tokens:  tokens,
		charges: charges,
		logger:  slog.Default(),
		metrics: metrics.Noop{},
		tracer:  tracing.Noop{},
		fatal:   func(err error) { panic(err) },
		newID:   uuid.NewString,
		state:   State{Phase: PhaseIdle, BuyButtonEnabled: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "checkout")
	m.queue = dispatch.New(m.logger)

	m.sm = stateless.NewStateMachineWithExternalStorage(
		func(context.Context) (stateless.State, error) { return m.state.Phase, nil },
		func(_ context.Context, s stateless.State) error {
			m.state.Phase = s.(Phase)
			return nil
		},
		stateless.FiringImmediate,
	)
	m.configure()
	return m
}

func (m *Machine) configure() {
	m.sm.Configure(PhaseIdle).
		OnEntry(m.enterIdle).
		Permit(triggerPurchaseInitiated, PhaseAuthorizing).
		PermitReentry(triggerFlowFinished)

	m.sm.Configure(PhaseAuthorizing).
		OnEntry(m.enterAuthorizing).
		Permit(triggerCredentialAuthorized, PhaseCharging).
		Permit(triggerFlowFinished, PhaseCancelled)

	m.sm.Configure(PhaseCharging).
		OnEntry(m.enterCharging).
		Permit(triggerChargeSucceeded, PhaseSettled).
		Permit(triggerChargeDeclined, PhaseSettled).
		Permit(triggerTokenFailed, PhaseSettled).
		Permit(triggerFlowFinished, PhaseCancelled)

	m.sm.Configure(PhaseSettled).
		OnEntryFrom(triggerChargeSucceeded, func(context.Context, ...any) error {
			m.settleState(DispositionSuccess, StatusThankYou, nil)
			return nil
		}).
		OnEntryFrom(triggerChargeDeclined, func(context.Context, ...any) error {
			m.settleState(DispositionFailure, StatusFailed, ErrChargeDeclined)
			return nil
		}).
		OnEntryFrom(triggerTokenFailed, func(_ context.Context, args ...any) error {
			var cause error = ErrTokenization
			if len(args) > 0 {
				if err, ok := args[0].(error); ok && err != nil {
					cause = err
				}
			}
			m.settleState(DispositionFailure, tokenFailureStatus(cause), cause)
			return nil
		}).
		Permit(triggerFlowFinished, PhaseIdle)

	m.sm.Configure(PhaseCancelled).
		OnEntry(m.enterCancelled).
		Permit(triggerReset, PhaseIdle)

	m.sm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
		m.logger.Debug("checkout transition",
			"from", tr.Source,
			"to", tr.Destination,
			"trigger", tr.Trigger,
			"attempt_id", m.state.AttemptID,
		)
	})
}

func (m *Machine) enterIdle(context.Context, ...any) error {
	if !m.authorized {
		m.state.StatusText = ""
	}
	m.state.BuyButtonEnabled = true
	m.state.AttemptID = ""
	m.endAttempt()
	return nil
}

func (m *Machine) enterAuthorizing(ctx context.Context, _ ...any) error {
	id := m.newID()

	actx, span := m.tracer.StartAttempt(context.WithoutCancel(ctx), id, m.product.Name)
	actx, cancel := context.WithCancel(actx)
	m.current = &attempt{ctx: actx, cancel: cancel, span: span, started: time.Now()}

	m.authorized = false
	m.state.AttemptID = id
	m.state.Disposition = ""
	m.state.StatusText = StatusAuthorizing
	m.state.BuyButtonEnabled = false
	m.metrics.AttemptStarted()
	return nil
}

func (m *Machine) enterCharging(context.Context, ...any) error {
	m.authorized = true
	m.state.StatusText = StatusProcessing
	return nil
}

func (m *Machine) enterCancelled(context.Context, ...any) error {
	if a := m.current; a != nil {
		a.cancel()
		a.span.SetAttributes(attribute.Bool("checkout.cancelled", true))
	}
	return nil
}

func (m *Machine) settleState(d Disposition, status string, cause error) {
	m.state.Disposition = d
	m.state.StatusText = status
	if a := m.current; a != nil {
		m.metrics.AttemptSettled(d.String(), time.Since(a.started))
		a.span.SetAttributes(attribute.String("checkout.disposition", d.String()))
		a.span.SetError(cause)
	}
}

func (m *Machine) endAttempt() {
	if a := m.current; a != nil {
		a.cancel()
		a.span.End()
		m.current = nil
	}
}

// fire must be called with m.mu held.
func (m *Machine) fire(ctx context.Context, t trigger, args ...any) error {
	from := m.state.Phase
	if err := m.sm.FireCtx(ctx, t, args...); err != nil {
		return fmt.Errorf("%w: %s while %s: %v", ErrInvalidTransition, t, from, err)
	}
	return nil
}

// OnPurchaseInitiated starts a new attempt. The machine must be idle.
func (m *Machine) OnPurchaseInitiated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if err := m.fire(ctx, triggerPurchaseInitiated); err != nil {
		return err
	}
	m.logger.Info("purchase initiated", "attempt_id", m.state.AttemptID, "product", m.product.Name)
	m.emitLocked()
	return nil
}

// OnCredentialAuthorized hands the authorized credential to the attempt and
// starts tokenization and charge in the background. The machine must be
// authorizing. result is invoked exactly once with the disposition, also
// when the flow is finished before the charge completes.
func (m *Machine) OnCredentialAuthorized(ctx context.Context, cred Credential, result ResultFunc) error {
	if result == nil {
		return ErrNilResult
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if err := m.fire(ctx, triggerCredentialAuthorized); err != nil {
		return err
	}
	m.pending = result
	m.emitLocked()

	m.wg.Add(1)
	go m.process(m.current.ctx, m.state.AttemptID, cred)
	return nil
}

// OnFlowFinished resets the machine to idle from any phase. The status
// text is cleared unless a credential was authorized in this attempt.
func (m *Machine) OnFlowFinished(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	from := m.state.Phase
	id := m.state.AttemptID
	if err := m.fire(ctx, triggerFlowFinished); err != nil {
		return err
	}
	if m.state.Phase == PhaseCancelled {
		m.metrics.AttemptCancelled(from.String())
		m.logger.Info("checkout cancelled", "attempt_id", id, "phase", from)
		m.emitLocked()
		m.resolveLocked(DispositionFailure)
		if err := m.fire(ctx, triggerReset); err != nil {
			return err
		}
	}
	m.emitLocked()
	return nil
}

// process runs the token→charge pipeline of attempt id.
func (m *Machine) process(ctx context.Context, id string, cred Credential) {
	defer m.wg.Done()

	token, err := m.createToken(ctx, id, cred)
	if err != nil {
		m.settle(id, stageTokenize, triggerTokenFailed, err)
		return
	}
	if m.isStale(id) {
		m.discard(id, stageTokenize)
		return
	}

	if m.chargeToken(ctx, id, token) {
		m.settle(id, stageCharge, triggerChargeSucceeded, nil)
		return
	}
	m.settle(id, stageCharge, triggerChargeDeclined, ErrChargeDeclined)
}

func (m *Machine) createToken(ctx context.Context, id string, cred Credential) (Token, error) {
	ctx, span := m.tracer.StartStage(ctx, id, stageTokenize)
	defer span.End()

	start := time.Now()
	token, err := m.tokens.CreateToken(ctx, cred)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		err = fmt.Errorf("%w: %w", ErrTokenization, err)
	case token == "":
		outcome = "contract_violation"
		err = m.violation(id, "token_provider", "returned neither a token nor an error")
	}
	m.metrics.StageCompleted(stageTokenize, outcome, time.Since(start))
	span.SetError(err)
	return token, err
}

func (m *Machine) chargeToken(ctx context.Context, id string, token Token) bool {
	ctx, span := m.tracer.StartStage(ctx, id, stageCharge)
	defer span.End()

	start := time.Now()
	ok := m.charges.ProcessToken(ctx, token, m.product)

	outcome := "ok"
	if !ok {
		outcome = "declined"
		span.SetError(ErrChargeDeclined)
	}
	m.metrics.StageCompleted(stageCharge, outcome, time.Since(start))
	return ok
}

// violation reports a broken collaborator contract loudly and hands it to
// the fatal handler. It returns only if the handler does.
func (m *Machine) violation(id, collaborator, detail string) error {
	err := fmt.Errorf("%w: %s %s", ErrContractViolation, collaborator, detail)
	m.metrics.ContractViolation(collaborator)
	m.logger.Error("collaborator contract violated",
		"attempt_id", id,
		"collaborator", collaborator,
		"err", err,
	)
	m.fatal(err)
	return err
}

// settle applies a collaborator result to attempt id unless it is stale.
func (m *Machine) settle(id, stage string, t trigger, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isStaleLocked(id) {
		m.discardLocked(id, stage)
		return
	}
	if err := m.fire(context.Background(), t, cause); err != nil {
		m.logger.Error("settlement rejected", "attempt_id", id, "err", err)
		m.resolveLocked(DispositionFailure)
		return
	}

	m.logger.Info("checkout settled",
		"attempt_id", id,
		"disposition", m.state.Disposition,
		"status", m.state.StatusText,
		"cause", cause,
	)
	m.emitLocked()
	m.resolveLocked(m.state.Disposition)
}

func (m *Machine) isStale(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isStaleLocked(id)
}

func (m *Machine) isStaleLocked(id string) bool {
	return m.state.AttemptID != id || m.state.Phase != PhaseCharging
}

func (m *Machine) discard(id, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardLocked(id, stage)
}

func (m *Machine) discardLocked(id, stage string) {
	m.metrics.StaleCallback(stage)
	m.logger.Debug("discarding collaborator result",
		"attempt_id", id,
		"stage", stage,
		"err", ErrStaleCallback,
	)
}

// resolveLocked hands d to the pending result callback, at most once.
func (m *Machine) resolveLocked(d Disposition) {
	res := m.pending
	if res == nil {
		return
	}
	m.pending = nil
	m.queue.Post(func() { res(d) })
}

// emitLocked publishes the current snapshot to every observer.
func (m *Machine) emitLocked() {
	snap := m.state
	fns := make([]func(State), len(m.observers))
	for i, o := range m.observers {
		fns[i] = o.fn
	}
	m.queue.Post(func() {
		for _, fn := range fns {
			fn(snap)
		}
	})
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Product returns the product being sold.
func (m *Machine) Product() Product { return m.product }

// Subscribe registers fn for every state change. The returned func
// removes it; snapshots already posted may still be delivered.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextObs
	m.nextObs++
	m.observers = append(m.observers, observer{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Flush blocks until every notification and result callback posted so
// far has run. It must not be called from an observer or result callback.
func (m *Machine) Flush() { m.queue.Flush() }

// Close cancels the running attempt, waits for its pipeline and stops
// notification delivery after draining it. Later events return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if a := m.current; a != nil {
		a.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.endAttempt()
	m.mu.Unlock()

	m.queue.Close()
}
