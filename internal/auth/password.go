package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrMalformedHash is returned by Verify when the stored value is not a
	// bcrypt hash.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// Hasher hashes and checks passwords with bcrypt. Every call gets a fresh
// random salt embedded in the returned hash. At most slots hashes run at
// once; a caller waiting for a slot gives up when its context is done.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummy func() ([]byte, error)
}

func NewHasher(cost, slots int) *Hasher {
	if slots < 1 {
		slots = 1
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(slots)),
		dummy: sync.OnceValues(func() ([]byte, error) {
			return bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
		}),
	}
}

// Hash returns the bcrypt encoding of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches storedHash. A wrong password is
// (false, nil); an error means storedHash could not be read.
func (h *Hasher) Verify(ctx context.Context, plaintext, storedHash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	// Nothing over the limit was ever hashed, so it never matches. The
	// prefix is still compared.
	tooLong := len(plaintext) > MaxPasswordBytes
	if tooLong {
		plaintext = plaintext[:MaxPasswordBytes]
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	switch {
	case err == nil:
		return !tooLong, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// VerifyUnknown spends the same bcrypt work as Verify against a fixed hash.
// Login calls it when no user matches, so a miss costs as much as a wrong
// password.
func (h *Hasher) VerifyUnknown(ctx context.Context, plaintext string) error {
	dummy, err := h.dummy()
	if err != nil {
		return fmt.Errorf("dummy hash: %w", err)
	}
	_, err = h.Verify(ctx, plaintext, string(dummy))
	return err
}
