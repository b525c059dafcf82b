package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	apperrors "github.com/stockledger/stockledger-backend/pkg/errors"
)

// Claims are the access token claims issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	BranchID *int64 `json:"branch_id"`
}

// Verifier checks HS256 access tokens and turns them into actors
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier from the JWT settings
func NewVerifier(cfg *config.JWTConfig) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Verify validates the token and returns the actor it names
func (v *Verifier) Verify(tokenString string) (*actor.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.TokenInvalid()
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.TokenInvalid()
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	role, err := actor.ParseRole(claims.Role)
	if err != nil || userID == "" {
		return nil, apperrors.TokenInvalid()
	}
	// Only superadmins may span every branch
	if role != actor.RoleSuperAdmin && claims.BranchID == nil {
		return nil, apperrors.Forbidden("account is not assigned to a branch")
	}

	return &actor.Actor{
		ID:       userID,
		Name:     claims.Name,
		Role:     role,
		BranchID: claims.BranchID,
	}, nil
}

// Issue signs a token for a; the identity provider normally does this, the
// service uses it for local tooling and tests.
func (v *Verifier) Issue(a *actor.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   a.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:   a.ID,
		Name:     a.Name,
		Role:     string(a.Role),
		BranchID: a.BranchID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
