package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/S-Muthumalai/E-Commerce-front/internal/notify"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
)

// ErrInvalidOTP covers every verification failure: no outstanding
// challenge, expired challenge, wrong code, or already-consumed code.
// The client gets no hint which one it was.
var ErrInvalidOTP = errors.New("invalid otp")

// Redis matches the *redis.Client commands the store uses, so tests can
// substitute a fake.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store keeps one outstanding challenge per phone number in Redis, with
// TTL-based expiry and delete-on-success consumption. Challenges for
// different phones never clobber each other.
type Store struct {
	Redis  Redis
	TTL    time.Duration
	Sender notify.Sender
}

// Issue generates a fresh 6-digit code, stores it under the phone's key
// (replacing any earlier unconsumed code for the SAME phone only) and
// dispatches it through the notification channel.
func (s *Store) Issue(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", errors.New("phone number is required")
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf(redisx.KeyOTPChallenge, phone)
	if err := s.Redis.Set(ctx, key, code, s.TTL).Err(); err != nil {
		return "", err
	}

	body := fmt.Sprintf("Your checkout verification code is %s. It expires in %d minutes.",
		code, int(s.TTL.Minutes()))
	if err := s.Sender.Send(ctx, phone, "Checkout verification", body); err != nil {
		// without the code the user cannot proceed; drop the challenge
		_ = s.Redis.Del(ctx, key).Err()
		return "", fmt.Errorf("dispatch otp: %w", err)
	}
	return code, nil
}

// Verify consumes the challenge on success. A wrong code leaves the
// challenge in place until it expires; a correct code works exactly
// once; the DEL count guards against concurrent replay.
func (s *Store) Verify(ctx context.Context, phone, code string) error {
	key := fmt.Sprintf(redisx.KeyOTPChallenge, phone)
	stored, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidOTP
		}
		return err
	}
	if code == "" || stored != code {
		return ErrInvalidOTP
	}

	n, err := s.Redis.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidOTP // consumed by a concurrent verify
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
