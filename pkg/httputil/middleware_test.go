package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*actor.Actor

func (s stubVerifier) Verify(token string) (*actor.Actor, error) {
	if a, ok := s[token]; ok {
		return a, nil
	}
	return nil, errors.TokenInvalid()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate(t *testing.T) {
	branch := int64(1)
	verifier := stubVerifier{
		"user-token":  {ID: "u-1", Role: actor.RoleUser, BranchID: &branch},
		"admin-token": {ID: "a-1", Role: actor.RoleAdmin, BranchID: &branch},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, actor.FromContext(r.Context()).ID)
	})
	handler := Authenticate(verifier)(RequirePermission(permissions.LedgerReplace)(inner))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"user lacks permission", "Bearer user-token", http.StatusForbidden, "FORBIDDEN"},
		{"admin allowed", "Bearer admin-token", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync/replace", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode(t, rec)
			if tt.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
			} else {
				assert.Equal(t, "a-1", resp.Data)
			}
		})
	}
}

func TestLoggerRecordsActor(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test", "info")
	branch := int64(1)
	verifier := stubVerifier{"t": {ID: "u-9", Role: actor.RoleUser, BranchID: &branch}}

	handler := RequestID(Logger(log)(Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NoContent(w)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast", nil)
	req.Header.Set("Authorization", "Bearer t")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "u-9", entry["user_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.EqualValues(t, 204, entry["status"])
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
}
