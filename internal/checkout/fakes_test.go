package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tokenResult struct {
	token Token
	err   error
}

// fakeTokens returns result immediately, or waits for gate when it is set.
// With ignoreCtx it keeps waiting after the attempt is cancelled, like a
// collaborator without cancellation support.
type fakeTokens struct {
	mu        sync.Mutex
	result    tokenResult
	gate      chan tokenResult
	ignoreCtx bool
	calls     int
	creds     []Credential
}

func (f *fakeTokens) CreateToken(ctx context.Context, cred Credential) (Token, error) {
	f.mu.Lock()
	f.calls++
	f.creds = append(f.creds, cred)
	res, gate, ignoreCtx := f.result, f.gate, f.ignoreCtx
	f.mu.Unlock()

	if gate == nil {
		return res.token, res.err
	}
	if ignoreCtx {
		r := <-gate
		return r.token, r.err
	}
	select {
	case r := <-gate:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeTokens) set(r tokenResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = r
}

func (f *fakeTokens) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCharges mirrors fakeTokens for the charge call. started receives
// one value per call when set.
type fakeCharges struct {
	mu        sync.Mutex
	ok        bool
	gate      chan bool
	started   chan struct{}
	ignoreCtx bool
	calls     int
	tokens    []Token
	products  []Product
}

func (f *fakeCharges) ProcessToken(ctx context.Context, token Token, product Product) bool {
	f.mu.Lock()
	f.calls++
	f.tokens = append(f.tokens, token)
	f.products = append(f.products, product)
	ok, gate, started, ignoreCtx := f.ok, f.gate, f.started, f.ignoreCtx
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate == nil {
		return ok
	}
	if ignoreCtx {
		return <-gate
	}
	select {
	case r := <-gate:
		return r
	case <-ctx.Done():
		return false
	}
}

func (f *fakeCharges) set(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ok = ok
}

func (f *fakeCharges) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recorder collects every published snapshot.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) phases() []Phase {
	var out []Phase
	for _, s := range r.snapshot() {
		out = append(out, s.Phase)
	}
	return out
}

func (r *recorder) statuses() []string {
	var out []string
	for _, s := range r.snapshot() {
		out = append(out, s.StatusText)
	}
	return out
}

// countingMetrics records metric calls.
type countingMetrics struct {
	mu         sync.Mutex
	started    int
	settled    map[string]int
	cancelled  map[string]int
	stages     map[string]int
	stale      map[string]int
	violations map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		settled:    map[string]int{},
		cancelled:  map[string]int{},
		stages:     map[string]int{},
		stale:      map[string]int{},
		violations: map[string]int{},
	}
}

func (c *countingMetrics) AttemptStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingMetrics) AttemptSettled(d string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settled[d]++
}

func (c *countingMetrics) AttemptCancelled(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled[phase]++
}

func (c *countingMetrics) StageCompleted(stage, outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage+"/"+outcome]++
}

func (c *countingMetrics) StaleCallback(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale[stage]++
}

func (c *countingMetrics) ContractViolation(collaborator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations[collaborator]++
}

func (c *countingMetrics) staleCount(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale[stage]
}

// newTestMachine builds a Machine that is closed when the test ends.
func newTestMachine(t *testing.T, tokens TokenProvider, charges ChargeService, opts ...Option) *Machine {
	t.Helper()

	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	m := New(Product{Name: "Test product", Price: 100}, tokens, charges, opts...)
	t.Cleanup(m.Close)
	return m
}

// results returns a buffered result callback and the channel it feeds.
func results() (ResultFunc, chan Disposition) {
	ch := make(chan Disposition, 8)
	return func(d Disposition) { ch <- d }, ch
}

func awaitDisposition(t *testing.T, ch <-chan Disposition) Disposition {
	t.Helper()

	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the result callback")
		return ""
	}
}
