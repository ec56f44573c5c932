package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rollcall-app/rollcall/internal/models"
)

const codeKeyPrefix = "otp:code:"

// codeRecord is what survives of an issued one-time code: its hash and
// how many wrong guesses it has absorbed.
type codeRecord struct {
	CodeHash  string `json:"code_hash"`
	Attempts  int    `json:"attempts"`
	ExpiresAt int64  `json:"expires_at"`
}

// CodeStore keeps issued one-time codes hashed in Redis, bounded by a
// TTL and an attempt budget. Plain codes are never stored.
type CodeStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxAttempts int
}

// NewCodeStore creates a code store with the given code lifetime and
// per-code attempt budget.
func NewCodeStore(client *redis.Client, ttl time.Duration, maxAttempts int) *CodeStore {
	return &CodeStore{
		client:      client,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func (s *CodeStore) key(email string) string {
	return codeKeyPrefix + email
}

// Put stores the hash of a freshly issued code, replacing any earlier
// code for the same email.
func (s *CodeStore) Put(ctx context.Context, email, code string) (time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)
	record := codeRecord{
		CodeHash:  hashCode(code),
		ExpiresAt: expiresAt.Unix(),
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode code record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(email), encoded, s.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("failed to store one-time code: %w", err)
	}
	return expiresAt, nil
}

// Consume checks a submitted code against the stored hash. A match
// deletes the record; a mismatch burns one attempt and deletes the
// record once the budget is exhausted.
func (s *CodeStore) Consume(ctx context.Context, email, code string) error {
	key := s.key(email)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ErrUnauthorized
		}
		return fmt.Errorf("failed to read one-time code: %w", err)
	}

	var record codeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		_ = s.client.Del(ctx, key).Err()
		return models.ErrUnauthorized
	}

	if time.Now().Unix() > record.ExpiresAt {
		_ = s.client.Del(ctx, key).Err()
		return models.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(record.CodeHash), []byte(hashCode(code))) != 1 {
		record.Attempts++
		if record.Attempts >= s.maxAttempts {
			_ = s.client.Del(ctx, key).Err()
			return models.ErrUnauthorized
		}
		if encoded, err := json.Marshal(record); err == nil {
			_ = s.client.Set(ctx, key, encoded, redis.KeepTTL).Err()
		}
		return models.ErrUnauthorized
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to consume one-time code: %w", err)
	}
	return nil
}

// hashCode hashes a one-time code for storage.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// GenerateCode returns a uniformly random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
