package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockledger/stockledger-backend/pkg/actor"
)

// User returns an ordinary actor assigned to branchID
func User(id string, branchID int64) *actor.Actor {
	return &actor.Actor{ID: id, Name: "User " + id, Role: actor.RoleUser, BranchID: &branchID}
}

// Admin returns a branch admin
func Admin(id string, branchID int64) *actor.Actor {
	return &actor.Actor{ID: id, Name: "Admin " + id, Role: actor.RoleAdmin, BranchID: &branchID}
}

// SuperAdmin returns an actor spanning all branches
func SuperAdmin(id string) *actor.Actor {
	return &actor.Actor{ID: id, Name: "Super " + id, Role: actor.RoleSuperAdmin}
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }

// NewJSONRequest builds a request with a JSON body and the actor on its context
func NewJSONRequest(t *testing.T, method, path string, body interface{}, a *actor.Actor) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a != nil {
		req = req.WithContext(actor.WithActor(req.Context(), a))
	}
	return req
}

// Envelope is the decoded response envelope with raw data
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// DecodeEnvelope parses a recorded response and optionally its data into dst
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}
