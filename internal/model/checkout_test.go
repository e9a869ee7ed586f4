package model

import (
	"encoding/json"
	"testing"

	"github.com/iliamunaev/checkout-pipeline/internal/checkout"
)

func TestAuthorizeRequestCredentialIsBase64(t *testing.T) {
	t.Parallel()

	var req AuthorizeRequest
	if err := json.Unmarshal([]byte(`{"credential":"cGstZGF0YQ==","network":"visa"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(req.Credential) != "pk-data" {
		t.Fatalf("expected decoded credential, got %q", req.Credential)
	}
	if req.Network != "visa" {
		t.Fatalf("expected network visa, got %q", req.Network)
	}
}

func TestAuthorizeResponseOmitEmptyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(AuthorizeResponse{Status: "error", Error: &ErrorPayload{Kind: "timeout"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["disposition"]; ok {
		t.Fatalf("expected disposition to be omitted, got %v", raw["disposition"])
	}
	if _, ok := raw["state"]; ok {
		t.Fatalf("expected state to be omitted, got %v", raw["state"])
	}
	errRaw, ok := raw["error"].(map[string]any)
	if !ok || errRaw["kind"] != "timeout" {
		t.Fatalf("expected error.kind=timeout, got %v", raw["error"])
	}
	if _, ok := errRaw["message"]; ok {
		t.Fatalf("expected message to be omitted")
	}
}

func TestStateResponseJSONTags(t *testing.T) {
	t.Parallel()

	st := checkout.State{Phase: checkout.PhaseIdle, BuyButtonEnabled: true}
	data, err := json.Marshal(StateResponse{Status: "ok", State: &st})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw struct {
		Status string         `json:"status"`
		State  map[string]any `json:"state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw.State["phase"] != "idle" || raw.State["buy_button_enabled"] != true {
		t.Fatalf("unexpected state payload %v", raw.State)
	}
	if _, ok := raw.State["status_text"]; ok {
		t.Fatalf("expected empty status_text to be omitted")
	}
}
