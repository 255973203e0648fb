package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis backs the three commands the store issues with a map. onDel
// runs before a DEL is applied, to stage concurrent-consumption races.
type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
	onDel  func()
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.onDel != nil {
		f.onDel()
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			delete(f.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type captureSender struct {
	recipient string
	body      string
	err       error
}

func (s *captureSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.recipient = recipient
	s.body = body
	return s.err
}

func newStore(rdb *fakeRedis, sender *captureSender) *Store {
	return &Store{Redis: rdb, TTL: 5 * time.Minute, Sender: sender}
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	sender := &captureSender{}
	store := newStore(rdb, sender)

	code, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	key := "otp:challenge:+15550001111"
	assert.Equal(t, code, rdb.values[key])
	assert.Equal(t, 5*time.Minute, rdb.ttls[key])

	assert.Equal(t, "+15550001111", sender.recipient)
	assert.Contains(t, sender.body, code)
}

func TestIssue_NoPhone(t *testing.T) {
	ctx := context.Background()
	store := newStore(newFakeRedis(), &captureSender{})

	_, err := store.Issue(ctx, "")
	require.Error(t, err)
}

func TestIssue_SendFailureDropsChallenge(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{err: errors.New("gateway down")})

	_, err := store.Issue(ctx, "+15550001111")
	require.Error(t, err)
	assert.Empty(t, rdb.values)
}

func TestIssue_ReplacesEarlierChallengeForSamePhone(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{})

	_, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)
	second, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)

	assert.Len(t, rdb.values, 1)
	require.NoError(t, store.Verify(ctx, "+15550001111", second))
}

func TestVerify_WrongCodeLeavesChallenge(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{})

	code, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)

	require.ErrorIs(t, store.Verify(ctx, "+15550001111", "000000"), ErrInvalidOTP)
	require.ErrorIs(t, store.Verify(ctx, "+15550001111", ""), ErrInvalidOTP)

	// the challenge survives wrong guesses until it expires
	require.NoError(t, store.Verify(ctx, "+15550001111", code))
}

func TestVerify_ConsumedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{})

	code, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)

	require.NoError(t, store.Verify(ctx, "+15550001111", code))
	require.ErrorIs(t, store.Verify(ctx, "+15550001111", code), ErrInvalidOTP)
}

func TestVerify_NoChallenge(t *testing.T) {
	ctx := context.Background()
	store := newStore(newFakeRedis(), &captureSender{})

	require.ErrorIs(t, store.Verify(ctx, "+15550001111", "123456"), ErrInvalidOTP)
}

func TestVerify_ConcurrentConsumptionLosesRace(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{})

	code, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)

	// another verify consumes the key between this one's GET and DEL
	rdb.onDel = func() { delete(rdb.values, "otp:challenge:+15550001111") }

	require.ErrorIs(t, store.Verify(ctx, "+15550001111", code), ErrInvalidOTP)
}

func TestVerify_ChallengesArePerPhone(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := newStore(rdb, &captureSender{})

	codeA, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)
	codeB, err := store.Issue(ctx, "+15550002222")
	require.NoError(t, err)
	for codeB == codeA {
		codeB, err = store.Issue(ctx, "+15550002222")
		require.NoError(t, err)
	}

	require.ErrorIs(t, store.Verify(ctx, "+15550001111", codeB), ErrInvalidOTP)
	require.NoError(t, store.Verify(ctx, "+15550001111", codeA))
	require.NoError(t, store.Verify(ctx, "+15550002222", codeB))
}
