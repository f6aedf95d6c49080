package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/elevate-app/elevate-backend/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Purpose selects which symmetric key signs a token. A token generated for
// one purpose never validates for another.
type Purpose string

const (
	PurposeSession      Purpose = "session"
	PurposeVerification Purpose = "verification"
	PurposeReset        Purpose = "password-reset"
)

// TokenService mints and validates PASETO v4.local tokens, one symmetric
// key per purpose.
type TokenService struct {
	keys     map[Purpose]paseto.V4SymmetricKey
	duration time.Duration
}

func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	keys := make(map[Purpose]paseto.V4SymmetricKey, 3)

	for purpose, raw := range map[Purpose][]byte{
		PurposeSession:      cfg.SessionKey,
		PurposeVerification: cfg.VerificationKey,
		PurposeReset:        cfg.ResetKey,
	} {
		key, err := paseto.V4SymmetricKeyFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s key: %w", purpose, err)
		}
		keys[purpose] = key
	}

	return &TokenService{keys: keys, duration: cfg.SessionDuration}, nil
}

// Generate mints a token carrying the subject with a fixed expiry horizon.
func (s *TokenService) Generate(subject string, purpose Purpose) (string, error) {
	key, ok := s.keys[purpose]
	if !ok {
		return "", fmt.Errorf("no key configured for purpose %q", purpose)
	}

	now := time.Now()
	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetSubject(subject)

	return token.V4Encrypt(key, nil), nil
}

// Validate checks the token against the purpose's key and returns its
// subject. Expired tokens yield ErrExpiredToken; everything else that is
// wrong with the token yields ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string, purpose Purpose) (string, error) {
	key, ok := s.keys[purpose]
	if !ok {
		return "", ErrInvalidToken
	}

	parser := paseto.NewParser()
	token, err := parser.ParseV4Local(key, tokenStr, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		if errors.Is(err, &paseto.RuleError{}) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return "", ErrInvalidToken
	}

	return subject, nil
}
