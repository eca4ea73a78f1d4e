package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersionV1 = 1

	// version(1) + attempts(2) + expiresAt(8) + challengeID(16)
	challengeHeaderSize = 27
)

var (
	ErrChallengeNotFound         = errors.New("challenge record not found")
	ErrChallengeExhausted        = errors.New("challenge attempts exhausted")
	ErrChallengeRedisUnavailable = errors.New("challenge redis unavailable")
)

// fetchChallengeLua atomically performs GET→liveness check on a challenge
// record, purging dead records on the way out.
// KEYS[1] = record key
// ARGV[1] = max attempts (int string)
// ARGV[2] = current unix timestamp (int string)
//
// Returns record bytes, or error string "not_found" / "expired" /
// "attempts_exceeded".
var fetchChallengeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local maxAttempts = tonumber(ARGV[1])
local nowUnix = tonumber(ARGV[2])

-- Binary layout: version(1) attempts(2 big-endian) expiresAt(8 big-endian) challengeID(16) hash(rest)
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local a0 = string.byte(data, 2)
local a1 = string.byte(data, 3)
local attempts = a0 * 256 + a1

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 4, 11)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowUnix > expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if attempts >= maxAttempts then
  redis.call('DEL', KEYS[1])
  return {err='attempts_exceeded'}
end

return data
`)

// failChallengeLua atomically increments the attempt counter, preserving the
// record's remaining TTL. A record whose counter reaches the budget is
// deleted in the same script run.
// KEYS[1] = record key
// ARGV[1] = max attempts (int string)
//
// Returns the new attempt count, or error string "not_found" / "expired" /
// "attempts_exceeded".
var failChallengeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local maxAttempts = tonumber(ARGV[1])

local a0 = string.byte(data, 2)
local a1 = string.byte(data, 3)
local attempts = a0 * 256 + a1 + 1

if attempts >= maxAttempts then
  redis.call('DEL', KEYS[1])
  return {err='attempts_exceeded'}
end

local newA0 = math.floor(attempts / 256)
local newA1 = attempts % 256
local newData = string.sub(data, 1, 1) .. string.char(newA0, newA1) .. string.sub(data, 4)
local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end
redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
return attempts
`)

// consumeChallengeLua deletes the record only if it still carries the
// challenge ID the verifier read. Returns 1 when this call consumed the
// record, 0 when it was already gone or superseded by a newer issue.
// KEYS[1] = record key
// ARGV[1] = challenge ID (16 bytes)
var consumeChallengeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
if string.sub(data, 12, 27) ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// ChallengeRecord is the server-side state of one outstanding code.
type ChallengeRecord struct {
	ChallengeID [16]byte
	CodeHash    string
	ExpiresAt   int64
	Attempts    uint16
}

// ChallengeStore keeps at most one live record per identity key.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "nmc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(identity string) string {
	return s.prefix + ":" + identity
}

// Save unconditionally overwrites any existing record for identity. Last
// writer wins: issuing a new code invalidates the previous one.
func (s *ChallengeStore) Save(ctx context.Context, identity string, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(identity), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}

	return nil
}

// Fetch returns the live record for identity. Absent, expired, and exhausted
// records all purge the key and return an error; the caller collapses them
// into one public failure mode.
func (s *ChallengeStore) Fetch(ctx context.Context, identity string, maxAttempts int) (*ChallengeRecord, error) {
	nowUnix := time.Now().Unix()

	result, err := fetchChallengeLua.Run(ctx, s.redis,
		[]string{s.key(identity)},
		maxAttempts,
		nowUnix,
	).Result()
	if err != nil {
		return nil, mapChallengeLuaError(err)
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrChallengeRedisUnavailable)
	}

	record, decErr := decodeChallengeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, decErr)
	}

	return record, nil
}

// RecordFailure durably counts one failed attempt before the caller raises
// its generic error. The remaining TTL is preserved, never reset.
func (s *ChallengeStore) RecordFailure(ctx context.Context, identity string, maxAttempts int) error {
	err := failChallengeLua.Run(ctx, s.redis,
		[]string{s.key(identity)},
		maxAttempts,
	).Err()
	if err != nil {
		return mapChallengeLuaError(err)
	}
	return nil
}

// Consume deletes the record if it still matches challengeID. Exactly one
// concurrent call observes true; every later caller sees false.
func (s *ChallengeStore) Consume(ctx context.Context, identity string, challengeID [16]byte) (bool, error) {
	result, err := consumeChallengeLua.Run(ctx, s.redis,
		[]string{s.key(identity)},
		string(challengeID[:]),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
	return result == 1, nil
}

// Delete unconditionally removes the record for identity. Idempotent.
func (s *ChallengeStore) Delete(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
	return nil
}

func mapChallengeLuaError(err error) error {
	switch err.Error() {
	case "not_found", "expired":
		return ErrChallengeNotFound
	case "attempts_exceeded":
		return ErrChallengeExhausted
	default:
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.ChallengeID[:])

	if record.CodeHash == "" {
		return nil, errors.New("challenge record missing code hash")
	}
	buf.WriteString(record.CodeHash)

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	if len(data) <= challengeHeaderSize {
		return nil, errors.New("challenge record too short")
	}

	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &ChallengeRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.ChallengeID[:]); err != nil {
		return nil, err
	}

	hash := make([]byte, reader.Len())
	if _, err := io.ReadFull(reader, hash); err != nil {
		return nil, err
	}
	record.CodeHash = string(hash)

	return record, nil
}
