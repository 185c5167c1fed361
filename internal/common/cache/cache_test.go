package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Memory
// ==========================

func TestMemory_GetSetDeleteClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", "1", 0))
	require.NoError(t, m.Set(ctx, "b", "2", 0))

	val, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", val)

	require.NoError(t, m.Delete(ctx, "a"))
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, m.Clear(ctx))
	_, ok, _ = m.Get(ctx, "b")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_ExpiryKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	require.NoError(t, m.Set(ctx, "k", "stale", time.Minute))

	now = now.Add(2 * time.Minute)
	refreshed := false
	m.now = func() time.Time {
		if !refreshed {
			refreshed = true
			require.NoError(t, m.Set(ctx, "k", "fresh", time.Hour))
		}
		return now
	}

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)

	value, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "fresh", value)
}

// ==========================
// Redis
// ==========================

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_RoundTripWithPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	c := NewRedis(client, "pharmacy:")

	require.NoError(t, c.Set(ctx, "last_medicine:PAT001", "Paracetamol", 0))
	assert.True(t, mr.Exists("pharmacy:last_medicine:PAT001"))

	val, ok, err := c.Get(ctx, "last_medicine:PAT001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Paracetamol", val)

	_, ok, err = c.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	c := NewRedis(client, "pharmacy:")

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, "x", 0))
	}
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists("pharmacy:a"))
	assert.False(t, mr.Exists("pharmacy:c"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedis_TTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	c := NewRedis(client, "p:")

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Errors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, "p:")

	mock.ExpectGet("p:k").SetErr(errors.New("connection reset"))
	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	mock.ExpectSet("p:k", "v", time.Minute).SetErr(errors.New("READONLY"))
	assert.ErrorIs(t, c.Set(ctx, "k", "v", time.Minute), ErrCacheUnavailable)

	mock.ExpectDel("p:k").SetVal(1)
	assert.NoError(t, c.Delete(ctx, "k"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Session
// ==========================

func TestSession_LastMedicine(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemory())

	name, err := s.LastMedicine(ctx, "PAT001")
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, s.SaveLastMedicine(ctx, "PAT001", "Ibuprofen"))
	require.NoError(t, s.SaveLastMedicine(ctx, "PAT001", ""))

	name, err = s.LastMedicine(ctx, "PAT001")
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen", name)

	other, _ := s.LastMedicine(ctx, "PAT002")
	assert.Empty(t, other)
}

func TestSession_PrescriptionVerification(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemory())

	until := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.MarkPrescriptionVerified(ctx, "PAT001", 3, until))

	got, ok, err := s.PrescriptionVerifiedUntil(ctx, "PAT001", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, until.Equal(got))

	_, ok, _ = s.PrescriptionVerifiedUntil(ctx, "PAT001", 4)
	assert.False(t, ok)

	// Already expired verifications are not remembered.
	require.NoError(t, s.MarkPrescriptionVerified(ctx, "PAT001", 5, time.Now().Add(-time.Hour)))
	_, ok, _ = s.PrescriptionVerifiedUntil(ctx, "PAT001", 5)
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	_, ok, _ = s.PrescriptionVerifiedUntil(ctx, "PAT001", 3)
	assert.False(t, ok)
}
