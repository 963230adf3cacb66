package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/util"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidSigningMethod = errors.New("invalid signing method")

// TokenService is the stateless codec for access and refresh tokens.
// It never consults the session store.
type TokenService struct {
	JwtSecretKey []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewTokenService(cfg *util.TokenConfig) *TokenService {
	return &TokenService{
		JwtSecretKey: cfg.JwtSecretKey,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
	}
}

type jwtClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Role      string `json:"role,omitempty"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

type AccessClaims struct {
	UserID    string
	SessionID string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type RefreshClaims struct {
	UserID    string
	SessionID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (ts *TokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// IssuePair mints an access token and a fresh refresh credential for the session.
func (ts *TokenService) IssuePair(user *models.User, sessionID string, now time.Time) (TokenPair, models.RefreshCredential, error) {
	access, accessExp, err := ts.IssueAccessToken(user.ID, sessionID, user.Role, now)
	if err != nil {
		return TokenPair{}, models.RefreshCredential{}, err
	}

	refresh, cred, err := ts.NewRefreshCredential(user.ID, sessionID, now)
	if err != nil {
		return TokenPair{}, models.RefreshCredential{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: cred.ExpiresAt,
	}, cred, nil
}

// IssueAccessToken создает HS512 access токен с новым JTI
func (ts *TokenService) IssueAccessToken(userID, sessionID, role string, now time.Time) (string, time.Time, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(ts.accessTTL)

	claims := &jwtClaims{
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		Type:      tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := ts.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// NewRefreshCredential mints a refresh token with a random token id and
// returns it with the credential to persist (hash only, never the token).
func (ts *TokenService) NewRefreshCredential(userID, sessionID string, now time.Time) (string, models.RefreshCredential, error) {
	issuedAt := now.Truncate(time.Second)
	cred := models.RefreshCredential{
		TokenID:   uuid.NewString(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ts.refreshTTL),
	}

	token, err := ts.SignRefreshToken(userID, sessionID, cred)
	if err != nil {
		return "", models.RefreshCredential{}, err
	}
	cred.Hash = HashToken(token)

	return token, cred, nil
}

// SignRefreshToken signs the refresh claims described by cred. HMAC signing
// is deterministic, so re-signing a stored credential yields the exact token
// that was handed out when it was minted.
func (ts *TokenService) SignRefreshToken(userID, sessionID string, cred models.RefreshCredential) (string, error) {
	claims := &jwtClaims{
		UserID:    userID,
		SessionID: sessionID,
		Type:      tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cred.TokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(cred.IssuedAt.UTC().Truncate(time.Second)),
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt.UTC().Truncate(time.Second)),
		},
	}
	return ts.sign(claims)
}

func (ts *TokenService) VerifyAccessToken(token string, now time.Time) (AccessClaims, error) {
	claims, err := ts.parse(token, tokenTypeAccess, now)
	if err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (ts *TokenService) VerifyRefreshToken(token string, now time.Time) (RefreshClaims, error) {
	claims, err := ts.parse(token, tokenTypeRefresh, now)
	if err != nil {
		return RefreshClaims{}, err
	}
	return RefreshClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ExpiredRefreshClaims decodes a correctly signed refresh token without
// checking its lifetime. The refresh handler uses it to find the session
// behind a token that has already expired.
func (ts *TokenService) ExpiredRefreshClaims(token string) (RefreshClaims, error) {
	if token == "" {
		return RefreshClaims{}, ErrNoToken
	}
	claims, err := ts.parseWith(token, tokenTypeRefresh, jwt.WithoutClaimsValidation())
	if err != nil {
		return RefreshClaims{}, err
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return RefreshClaims{}, fmt.Errorf("%w: missing lifetime claims", ErrTokenInvalid)
	}
	return RefreshClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// HashToken is the one-way digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (ts *TokenService) sign(claims *jwtClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(ts.JwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}
	return signed, nil
}

func (ts *TokenService) parse(token, wantType string, now time.Time) (*jwtClaims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	return ts.parseWith(token, wantType,
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
}

func (ts *TokenService) parseWith(token, wantType string, opts ...jwt.ParserOption) (*jwtClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))

	parsed, err := jwt.ParseWithClaims(
		token,
		&jwtClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.JwtSecretKey, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != wantType || claims.UserID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: unexpected %q token", ErrTokenInvalid, claims.Type)
	}
	return claims, nil
}
