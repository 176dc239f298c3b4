package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/mailer"
)

// TokenIssuer issues admin session tokens.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

const (
	loginCodeTTL         = 10 * time.Minute
	loginCodeMaxAttempts = 5
)

// loginChallenge is one outstanding emailed login code.
type loginChallenge struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// AuthService implements the email-code admin login flow: a one-time 6-digit
// code is mailed to the configured admin address, then exchanged for a bearer
// token. Challenges are in-memory; a restart simply invalidates them.
type AuthService struct {
	mailer     mailer.Mailer
	tokens     TokenIssuer
	clock      clock.Clock
	adminEmail string

	mu         sync.Mutex
	challenges map[string]*loginChallenge
}

// NewAuthService creates an AuthService for the given admin email.
func NewAuthService(m mailer.Mailer, tokens TokenIssuer, clk clock.Clock, adminEmail string) *AuthService {
	return &AuthService{
		mailer:     m,
		tokens:     tokens,
		clock:      clk,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		challenges: make(map[string]*loginChallenge),
	}
}

// RequestLoginCode generates and mails a login code. It succeeds for any
// email so the admin address cannot be probed; only the configured address
// actually receives a code.
func (s *AuthService) RequestLoginCode(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized != s.adminEmail {
		log.Warn().Str("email", normalized).Msg("login code requested for non-admin email")
		return nil
	}

	code, err := generateLoginCode()
	if err != nil {
		return fmt.Errorf("generate login code: %w", err)
	}

	s.mu.Lock()
	s.challenges[normalized] = &loginChallenge{
		code:      code,
		expiresAt: s.clock.Now().Add(loginCodeTTL),
	}
	s.mu.Unlock()

	body := fmt.Sprintf("Your admin login code is %s. It expires in %d minutes.",
		code, int(loginCodeTTL.Minutes()))
	if err := s.mailer.Send(ctx, normalized, "Admin login code", body); err != nil {
		return fmt.Errorf("send login code: %w", err)
	}
	return nil
}

// VerifyLoginCode exchanges a valid code for a session token. Codes are
// single use and expire; repeated wrong guesses burn the challenge.
// Returns ErrInvalidLogin for every failure mode, without distinguishing.
func (s *AuthService) VerifyLoginCode(ctx context.Context, email, code string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	challenge, ok := s.challenges[normalized]
	if !ok {
		s.mu.Unlock()
		return "", ErrInvalidLogin
	}
	if s.clock.Now().After(challenge.expiresAt) {
		delete(s.challenges, normalized)
		s.mu.Unlock()
		return "", ErrInvalidLogin
	}

	challenge.attempts++
	if challenge.attempts > loginCodeMaxAttempts {
		delete(s.challenges, normalized)
		s.mu.Unlock()
		return "", ErrInvalidLogin
	}

	match := subtle.ConstantTimeCompare([]byte(challenge.code), []byte(strings.TrimSpace(code))) == 1
	if !match {
		s.mu.Unlock()
		return "", ErrInvalidLogin
	}

	delete(s.challenges, normalized)
	s.mu.Unlock()

	token, err := s.tokens.Issue(normalized)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// generateLoginCode returns a 6-digit code from crypto/rand.
func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
