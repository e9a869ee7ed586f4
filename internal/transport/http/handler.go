// Package httptransport exposes the checkout state machine over HTTP.
// It plays the presentation role: it forwards the payment sheet's
// lifecycle events and renders the state snapshot as JSON.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/iliamunaev/checkout-pipeline/internal/checkout"
	"github.com/iliamunaev/checkout-pipeline/internal/model"
)

type checkoutMachine interface {
	OnPurchaseInitiated(ctx context.Context) error
	OnCredentialAuthorized(ctx context.Context, cred checkout.Credential, result checkout.ResultFunc) error
	OnFlowFinished(ctx context.Context) error
	State() checkout.State
	Product() checkout.Product
}

// Handler handles HTTP requests to the checkout.
type Handler struct {
	machine        checkoutMachine
	requestTimeout time.Duration
}

// New returns a Handler configured with the given machine
// and request timeout.
//
// It panics if machine is nil. If requestTimeout is non-positive,
// a default timeout is applied.
func New(machine checkoutMachine, requestTimeout time.Duration) *Handler {
	if machine == nil {
		panic("httptransport.New: nil checkout machine")
	}
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	return &Handler{
		machine:        machine,
		requestTimeout: requestTimeout,
	}
}

// Register mounts the checkout routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/checkout/state", h.HandleState)
	mux.HandleFunc("/checkout/payment-request", h.HandlePaymentRequest)
	mux.HandleFunc("/checkout/buy", h.HandleBuy)
	mux.HandleFunc("/checkout/authorize", h.HandleAuthorize)
	mux.HandleFunc("/checkout/finish", h.HandleFinish)
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleState returns the current snapshot.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeState(w, nil)
}

// HandlePaymentRequest returns what the payment sheet should present.
func (h *Handler) HandlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.machine.Product().PaymentRequest())
}

// HandleBuy starts an attempt, as a tap on the buy button does.
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeState(w, h.machine.OnPurchaseInitiated(r.Context()))
}

// HandleFinish reports that the payment sheet was dismissed.
func (h *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeState(w, h.machine.OnFlowFinished(r.Context()))
}

// HandleAuthorize hands an authorized credential to the attempt.
//
// The request must be a POST with a valid JSON body. The response is
// written once the attempt has a disposition or the request timeout
// expires, whichever comes first.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	// Request validation
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req model.AuthorizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeBadRequest(w, "invalid JSON")
		return
	}
	if len(req.Credential) == 0 {
		writeBadRequest(w, "credential is required")
		return
	}

	// Set a deadline for waiting on the disposition
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	done := make(chan checkout.Disposition, 1)
	cred := checkout.Credential{Data: req.Credential, Network: req.Network}
	if err := h.machine.OnCredentialAuthorized(ctx, cred, func(d checkout.Disposition) { done <- d }); err != nil {
		h.writeAuthorizeError(w, err)
		return
	}

	select {
	case d := <-done:
		st := h.machine.State()
		writeJSON(w, http.StatusOK, model.AuthorizeResponse{
			Status:      "ok",
			Disposition: d,
			State:       &st,
		})
	case <-ctx.Done():
		h.writeAuthorizeError(w, ctx.Err())
	}
}

func (h *Handler) writeAuthorizeError(w http.ResponseWriter, err error) {
	st := h.machine.State()
	writeJSON(w, httpStatus(err), model.AuthorizeResponse{
		Status: "error",
		State:  &st,
		Error:  errorPayload(err),
	})
}

// writeState responds with the current snapshot, or with err if set.
func (h *Handler) writeState(w http.ResponseWriter, err error) {
	st := h.machine.State()
	resp := model.StateResponse{Status: "ok", State: &st}
	if err != nil {
		resp.Status = "error"
		resp.Error = errorPayload(err)
	}
	writeJSON(w, httpStatus(err), resp)
}

func errorPayload(err error) *model.ErrorPayload {
	p := &model.ErrorPayload{Kind: errorKind(err)}
	if !errors.Is(err, context.DeadlineExceeded) {
		p.Message = err.Error()
	}
	return p
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.AuthorizeResponse{
		Status: "error",
		Error:  &model.ErrorPayload{Kind: "bad_request", Message: msg},
	})
}

// writeJSON writes v as a JSON response with the given status code.
// The Content-Type is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
