// Package inventory owns the per-showtime seat holds. A hold is a Redis key
// whose value is the owning booking id and whose TTL is the hold deadline, so
// an expired hold disappears from every read without an active writer. The
// durable BOOKED state lives in Postgres with the confirmed booking.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tranvd/cinebook/internal/domain"
)

// reserveScript sets all requested holds or none. The check pass and the set
// pass run inside one script, so two concurrent reservations for overlapping
// seat sets cannot both succeed.
var reserveScript = redis.NewScript(`
	-- KEYS[1] = per-showtime lock set, KEYS[2..] = seat lock keys
	-- ARGV[1] = booking id, ARGV[2] = ttl seconds, ARGV[3..] = seat codes

	for i = 2, #KEYS do
		if redis.call("EXISTS", KEYS[i]) == 1 then
			return {err = "seat already held"}
		end
	end

	for i = 2, #KEYS do
		redis.call("SET", KEYS[i], ARGV[1], "EX", ARGV[2])
	end

	for i = 3, #ARGV do
		redis.call("SADD", KEYS[1], ARGV[i])
	end

	return "OK"
`)

// releaseScript deletes only the holds still owned by the booking. Holds that
// expired or were re-acquired by someone else are left alone, which makes
// release safe to retry.
var releaseScript = redis.NewScript(`
	-- KEYS[1] = per-showtime lock set, KEYS[2..] = seat lock keys
	-- ARGV[1] = booking id, ARGV[2..] = seat codes

	for i = 2, #KEYS do
		if redis.call("GET", KEYS[i]) == ARGV[1] then
			redis.call("DEL", KEYS[i])
			redis.call("SREM", KEYS[1], ARGV[i])
		end
	end

	return "OK"
`)

// commitScript verifies that every hold is still owned by the booking before
// clearing any of them. A single expired or stolen hold fails the whole
// commit, which is what guards confirmation after an expiry sweep.
var commitScript = redis.NewScript(`
	-- KEYS[1] = per-showtime lock set, KEYS[2..] = seat lock keys
	-- ARGV[1] = booking id, ARGV[2..] = seat codes

	for i = 2, #KEYS do
		if redis.call("GET", KEYS[i]) ~= ARGV[1] then
			return {err = "seat not held by booking"}
		end
	end

	for i = 2, #KEYS do
		redis.call("DEL", KEYS[i])
		redis.call("SREM", KEYS[1], ARGV[i])
	end

	return "OK"
`)

// heldSeatsScript prunes lock-set members whose lock key already expired and
// returns the seat codes still held.
var heldSeatsScript = redis.NewScript(`
	local setKey = KEYS[1]
	local showtimeId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}
	local heldSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatCodes = result[2]

		for _, seatCode in ipairs(seatCodes) do
			local lockKey = "seat_lock:" .. showtimeId .. ":" .. seatCode
			if redis.call("EXISTS", lockKey) == 0 then
				table.insert(expiredSeats, seatCode)
			else
				table.insert(heldSeats, seatCode)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	return heldSeats
`)

type Manager struct {
	redis redis.UniversalClient
}

func NewManager(client redis.UniversalClient) *Manager {
	return &Manager{redis: client}
}

func (m *Manager) Reserve(
	ctx context.Context,
	showtimeID int,
	seatCodes []string,
	bookingID string,
	ttl time.Duration) error {

	// TTL rounds up to the next full second so a hold never expires before
	// the deadline it backs.
	ttlSeconds := int((ttl + time.Second - 1) / time.Second)

	keys, args := scriptInput(showtimeID, seatCodes, bookingID)
	args = append([]any{args[0], ttlSeconds}, args[1:]...)

	err := reserveScript.Run(ctx, m.redis, keys, args...).Err()
	if err != nil {
		if redis.HasErrorPrefix(err, "seat already held") {
			return domain.ErrSeatAlreadyHeld
		}

		return fmt.Errorf("failed to reserve seats for showtime %d: %w", showtimeID, err)
	}

	return nil
}

func (m *Manager) Release(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error {
	keys, args := scriptInput(showtimeID, seatCodes, bookingID)

	err := releaseScript.Run(ctx, m.redis, keys, args...).Err()
	if err != nil {
		return fmt.Errorf("failed to release seats for showtime %d: %w", showtimeID, err)
	}

	return nil
}

func (m *Manager) Commit(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error {
	keys, args := scriptInput(showtimeID, seatCodes, bookingID)

	err := commitScript.Run(ctx, m.redis, keys, args...).Err()
	if err != nil {
		if redis.HasErrorPrefix(err, "seat not held by booking") {
			return domain.ErrNotHeldByBooking
		}

		return fmt.Errorf("failed to commit seats for showtime %d: %w", showtimeID, err)
	}

	return nil
}

func (m *Manager) HeldSeats(ctx context.Context, showtimeID int) ([]string, error) {
	cmd := heldSeatsScript.Run(ctx, m.redis, []string{seatSetKey(showtimeID)}, showtimeID)

	seatCodes, err := cmd.StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list held seats for showtime %d: %w", showtimeID, err)
	}

	return seatCodes, nil
}

func scriptInput(showtimeID int, seatCodes []string, bookingID string) ([]string, []any) {
	keys := make([]string, 0, len(seatCodes)+1)
	keys = append(keys, seatSetKey(showtimeID))

	args := make([]any, 0, len(seatCodes)+1)
	args = append(args, bookingID)

	for _, code := range seatCodes {
		keys = append(keys, seatLockKey(showtimeID, code))
		args = append(args, code)
	}

	return keys, args
}

func seatLockKey(showtimeID int, seatCode string) string {
	return fmt.Sprintf("seat_lock:%d:%s", showtimeID, seatCode)
}

func seatSetKey(showtimeID int) string {
	return fmt.Sprintf("seat_locks:%d", showtimeID)
}
