package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tranvd/cinebook/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewManager(client), mr
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("should hold the whole seat set when no seat is locked", func(t *testing.T) {
		manager, mr := newTestManager(t)

		err := manager.Reserve(ctx, 7, []string{"A1", "A2"}, "booking-1", 15*time.Minute)
		require.NoError(t, err)

		for _, code := range []string{"A1", "A2"} {
			val, err := mr.Get(seatLockKey(7, code))
			require.NoError(t, err)
			assert.Equal(t, "booking-1", val)
		}

		held, err := manager.HeldSeats(ctx, 7)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A1", "A2"}, held)
	})

	t.Run("should write nothing when any seat of the set is already locked", func(t *testing.T) {
		manager, mr := newTestManager(t)

		err := manager.Reserve(ctx, 7, []string{"A2"}, "booking-1", 15*time.Minute)
		require.NoError(t, err)

		err = manager.Reserve(ctx, 7, []string{"A1", "A2", "A3"}, "booking-2", 15*time.Minute)
		assert.ErrorIs(t, err, domain.ErrSeatAlreadyHeld)

		assert.False(t, mr.Exists(seatLockKey(7, "A1")))
		assert.False(t, mr.Exists(seatLockKey(7, "A3")))

		val, err := mr.Get(seatLockKey(7, "A2"))
		require.NoError(t, err)
		assert.Equal(t, "booking-1", val)
	})

	t.Run("should let exactly one of many concurrent reservations succeed", func(t *testing.T) {
		manager, _ := newTestManager(t)

		const contenders = 8

		var wg sync.WaitGroup
		errs := make([]error, contenders)

		for i := range errs {
			wg.Add(1)

			go func() {
				defer wg.Done()
				errs[i] = manager.Reserve(ctx, 7, []string{"B1", "B2"}, fmt.Sprintf("booking-%d", i), 15*time.Minute)
			}()
		}

		wg.Wait()

		won := 0
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				assert.ErrorIs(t, err, domain.ErrSeatAlreadyHeld)
			}
		}

		assert.Equal(t, 1, won)
	})

	t.Run("should free the seats once the hold TTL elapses", func(t *testing.T) {
		manager, mr := newTestManager(t)

		err := manager.Reserve(ctx, 7, []string{"A1"}, "booking-1", time.Minute)
		require.NoError(t, err)

		mr.FastForward(2 * time.Minute)

		err = manager.Reserve(ctx, 7, []string{"A1"}, "booking-2", time.Minute)
		require.NoError(t, err)

		val, err := mr.Get(seatLockKey(7, "A1"))
		require.NoError(t, err)
		assert.Equal(t, "booking-2", val)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete only the holds owned by the booking", func(t *testing.T) {
		manager, mr := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1"}, "booking-1", 15*time.Minute))
		require.NoError(t, manager.Reserve(ctx, 7, []string{"A2"}, "booking-2", 15*time.Minute))

		err := manager.Release(ctx, 7, []string{"A1", "A2"}, "booking-1")
		require.NoError(t, err)

		assert.False(t, mr.Exists(seatLockKey(7, "A1")))

		val, err := mr.Get(seatLockKey(7, "A2"))
		require.NoError(t, err)
		assert.Equal(t, "booking-2", val)
	})

	t.Run("should be safe to retry", func(t *testing.T) {
		manager, _ := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1"}, "booking-1", 15*time.Minute))
		require.NoError(t, manager.Release(ctx, 7, []string{"A1"}, "booking-1"))
		require.NoError(t, manager.Release(ctx, 7, []string{"A1"}, "booking-1"))
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("should clear the holds when the booking still owns all of them", func(t *testing.T) {
		manager, mr := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1", "A2"}, "booking-1", 15*time.Minute))

		err := manager.Commit(ctx, 7, []string{"A1", "A2"}, "booking-1")
		require.NoError(t, err)

		assert.False(t, mr.Exists(seatLockKey(7, "A1")))
		assert.False(t, mr.Exists(seatLockKey(7, "A2")))

		held, err := manager.HeldSeats(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, held)
	})

	t.Run("should fail the whole commit once the holds expired", func(t *testing.T) {
		manager, mr := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1", "A2"}, "booking-1", time.Minute))

		mr.FastForward(2 * time.Minute)

		err := manager.Commit(ctx, 7, []string{"A1", "A2"}, "booking-1")
		assert.ErrorIs(t, err, domain.ErrNotHeldByBooking)
	})

	t.Run("should not clear a hold re-acquired by another booking", func(t *testing.T) {
		manager, mr := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1"}, "booking-1", time.Minute))
		mr.FastForward(2 * time.Minute)
		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1"}, "booking-2", 15*time.Minute))

		err := manager.Commit(ctx, 7, []string{"A1"}, "booking-1")
		assert.ErrorIs(t, err, domain.ErrNotHeldByBooking)

		val, err := mr.Get(seatLockKey(7, "A1"))
		require.NoError(t, err)
		assert.Equal(t, "booking-2", val)
	})
}

func TestHeldSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("should prune lock-set members whose lock already expired", func(t *testing.T) {
		manager, mr := newTestManager(t)

		require.NoError(t, manager.Reserve(ctx, 7, []string{"A1"}, "booking-1", time.Minute))
		require.NoError(t, manager.Reserve(ctx, 7, []string{"A2"}, "booking-2", time.Hour))

		mr.FastForward(2 * time.Minute)

		held, err := manager.HeldSeats(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []string{"A2"}, held)

		isMember, err := mr.SIsMember(seatSetKey(7), "A1")
		require.NoError(t, err)
		assert.False(t, isMember)
	})

	t.Run("should return nothing for a showtime without holds", func(t *testing.T) {
		manager, _ := newTestManager(t)

		held, err := manager.HeldSeats(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, held)
	})
}
