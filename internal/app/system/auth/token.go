package auth

import (
	"context"
	"errors"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Claims is the signed claim set carried by first-party tokens. Federated
// tokens carry at least sub and role; both parse into this struct.
type Claims struct {
	AccountID       string `json:"account_id,omitempty"`
	Role            string `json:"role"`
	OwnerBusinessID string `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 tokens signed with the shared secret and
// verifies two schemes: first-party HS256 and federated RS256 whose public
// keys come from a JWKS endpoint. Both paths converge on SessionUser.
type TokenService struct {
	secret []byte
	issuer string
	jwks   keyfunc.Keyfunc // nil when no federated issuer is configured
	log    *zap.Logger
}

// NewTokenService creates a TokenService for first-party HS256 tokens.
func NewTokenService(secret, issuer string, logger *zap.Logger) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer, log: logger}
}

// EnableFederated starts JWKS fetching/caching for the federated RS256
// verification path. Machine-to-machine callers present tokens minted by an
// external identity provider; we verify against its published keys.
func (s *TokenService) EnableFederated(ctx context.Context, jwksURL string) error {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return err
	}
	s.jwks = k
	s.log.Info("federated token verification enabled", zap.String("jwks_url", jwksURL))
	return nil
}

// Issue signs a first-party token for u expiring after ttl.
func (s *TokenService) Issue(u *SessionUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID:       u.ID,
		Role:            u.Role,
		OwnerBusinessID: u.OwnerBusinessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates a token against both accepted schemes and returns the
// normalized principal. Distinct failure modes (expired, bad signature,
// malformed) are logged individually; callers see a uniform Unauthorized.
func (s *TokenService) Verify(raw string) (*SessionUser, error) {
	u, err := s.verifyWith(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	})
	if err == nil {
		return u, nil
	}

	// Expired first-party tokens stay expired; trying the other scheme
	// would just fail on the signature anyway.
	if s.jwks != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		if u, ferr := s.verifyWith(raw, s.jwks.Keyfunc); ferr == nil {
			return u, nil
		}
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		s.log.Debug("token expired")
		return nil, apperr.Unauthorized("token has expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		s.log.Warn("token signature invalid")
		return nil, apperr.Unauthorized("invalid token")
	default:
		s.log.Debug("token rejected", zap.Error(err))
		return nil, apperr.Unauthorized("invalid token")
	}
}

func (s *TokenService) verifyWith(raw string, kf jwt.Keyfunc) (*SessionUser, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, kf)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	id := claims.AccountID
	if id == "" {
		id = claims.Subject
	}
	if id == "" || claims.Role == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &SessionUser{
		ID:              id,
		Role:            claims.Role,
		OwnerBusinessID: claims.OwnerBusinessID,
	}, nil
}
