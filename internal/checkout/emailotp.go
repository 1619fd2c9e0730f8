package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EmailOTPBackend generates real one-time codes and delivers them by
// email. Codes are held in memory per request id until they expire.
type EmailOTPBackend struct {
	Send func(to, code string) error
	TTL  time.Duration // default 5m

	mu    sync.Mutex
	codes map[string]emailOTPEntry
}

type emailOTPEntry struct {
	code      string
	expiresAt time.Time
}

func NewEmailOTPBackend(send func(to, code string) error, ttl time.Duration) *EmailOTPBackend {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &EmailOTPBackend{
		Send:  send,
		TTL:   ttl,
		codes: make(map[string]emailOTPEntry),
	}
}

func (b *EmailOTPBackend) Request(ctx context.Context, phone, email string) (string, time.Time, error) {
	if email == "" {
		return "", time.Time{}, fmt.Errorf("email OTP backend needs an email address")
	}
	code, err := randomCode()
	if err != nil {
		return "", time.Time{}, err
	}
	requestID := uuid.NewString()
	expiresAt := time.Now().Add(b.TTL)

	b.mu.Lock()
	b.codes[requestID] = emailOTPEntry{code: code, expiresAt: expiresAt}
	b.prune(time.Now())
	b.mu.Unlock()

	if err := b.Send(email, code); err != nil {
		b.mu.Lock()
		delete(b.codes, requestID)
		b.mu.Unlock()
		return "", time.Time{}, err
	}
	log.Printf("📧 Verification code sent to %s (request %s)", email, requestID)
	return requestID, expiresAt, nil
}

func (b *EmailOTPBackend) Verify(ctx context.Context, requestID, code string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.codes[requestID]
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	if entry.code != code {
		return false, nil
	}
	delete(b.codes, requestID)
	return true, nil
}

// prune drops expired entries. Caller holds the lock.
func (b *EmailOTPBackend) prune(now time.Time) {
	for id, entry := range b.codes {
		if now.After(entry.expiresAt) {
			delete(b.codes, id)
		}
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
