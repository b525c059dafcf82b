package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	apperrors "github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier() *Verifier {
	return NewVerifier(&config.JWTConfig{Secret: "test-secret", Issuer: "identity"})
}

func TestVerify_RoundTrip(t *testing.T) {
	v := newVerifier()
	branch := int64(3)

	token, err := v.Issue(&actor.Actor{ID: "u-1", Name: "Asha", Role: actor.RoleAdmin, BranchID: &branch}, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, actor.RoleAdmin, got.Role)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, int64(3), *got.BranchID)
}

func TestVerify_SuperAdminWithoutBranch(t *testing.T) {
	v := newVerifier()
	token, err := v.Issue(&actor.Actor{ID: "root", Role: actor.RoleSuperAdmin}, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, got.BranchID)
}

func TestVerify_Rejections(t *testing.T) {
	v := newVerifier()

	expired, _ := v.Issue(&actor.Actor{ID: "u", Role: actor.RoleSuperAdmin}, -time.Minute)
	noBranch, _ := v.Issue(&actor.Actor{ID: "u", Role: actor.RoleUser}, time.Hour)
	badRole, _ := v.Issue(&actor.Actor{ID: "u", Role: "owner"}, time.Hour)
	otherSecret, _ := NewVerifier(&config.JWTConfig{Secret: "other", Issuer: "identity"}).
		Issue(&actor.Actor{ID: "u", Role: actor.RoleSuperAdmin}, time.Hour)
	wrongIssuer, _ := NewVerifier(&config.JWTConfig{Secret: "test-secret", Issuer: "elsewhere"}).
		Issue(&actor.Actor{ID: "u", Role: actor.RoleSuperAdmin}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u", Role: "superadmin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"expired", expired, "TOKEN_EXPIRED"},
		{"user without branch", noBranch, "FORBIDDEN"},
		{"unknown role", badRole, "TOKEN_INVALID"},
		{"wrong secret", otherSecret, "TOKEN_INVALID"},
		{"wrong issuer", wrongIssuer, "TOKEN_INVALID"},
		{"unsigned", none, "TOKEN_INVALID"},
		{"garbage", "not-a-token", "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}
