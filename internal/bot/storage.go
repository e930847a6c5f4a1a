package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vpsdash/vpsdash/internal/secret"
)

// confirmationTTL bounds how long a pending stop-all confirmation stays
// actionable.
const confirmationTTL = 5 * time.Minute

// Preferences are per-user bot settings.
type Preferences struct {
	Notifications bool `json:"notifications"`
	AutoRefresh   bool `json:"auto_refresh"`
	DarkMode      bool `json:"dark_mode"`
}

// UserData is what the bot remembers about a Telegram user. It is
// stored encrypted because it carries the provider API key.
type UserData struct {
	APIKey      string      `json:"api_key"`
	Preferences Preferences `json:"preferences"`
	LastActive  time.Time   `json:"last_active"`
}

// ConfirmationContext is a pending destructive action awaiting a button
// press. It expires on its own.
type ConfirmationContext struct {
	Action    string    `json:"action"`
	MessageID int       `json:"message_id"`
	ServerIDs []string  `json:"server_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// UserStore persists bot user state in redis, encrypting anything that
// contains credentials.
type UserStore struct {
	redis  RedisClient
	cipher *secret.Cipher
}

// NewUserStore builds a store over the given redis connection.
func NewUserStore(redis RedisClient, cipher *secret.Cipher) *UserStore {
	return &UserStore{redis: redis, cipher: cipher}
}

// SaveUserData encrypts and stores the user's data.
func (s *UserStore) SaveUserData(ctx context.Context, userID int64, data UserData) error {
	if s == nil || s.redis == nil {
		return errors.New("user store is not initialized")
	}
	if s.cipher == nil {
		return errors.New("user store has no encryption key configured")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	sealed, err := s.cipher.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("encrypt user data: %w", err)
	}

	if err := s.redis.Set(ctx, userKey(userID), sealed, 0); err != nil {
		return fmt.Errorf("store user data: %w", err)
	}
	return nil
}

// GetUserData returns the user's data, or nil when the user is unknown
// or the stored blob cannot be decrypted.
func (s *UserStore) GetUserData(ctx context.Context, userID int64) (*UserData, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("user store is not initialized")
	}

	sealed, err := s.redis.Get(ctx, userKey(userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user data: %w", err)
	}

	if s.cipher == nil {
		return nil, errors.New("user store has no encryption key configured")
	}
	payload, err := s.cipher.Decrypt(sealed)
	if err != nil {
		// a rotated key makes old blobs unreadable; treat as absent
		return nil, nil
	}

	var data UserData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, nil
	}
	return &data, nil
}

// SaveConfirmation stores a pending confirmation with a 5 minute TTL.
func (s *UserStore) SaveConfirmation(ctx context.Context, userID int64, confirm ConfirmationContext) error {
	if s == nil || s.redis == nil {
		return errors.New("user store is not initialized")
	}

	if confirm.Timestamp.IsZero() {
		confirm.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(confirm)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	if err := s.redis.Set(ctx, confirmKey(userID), string(payload), confirmationTTL); err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}
	return nil
}

// GetConfirmation returns the pending confirmation, or nil when none
// exists or it has expired.
func (s *UserStore) GetConfirmation(ctx context.Context, userID int64) (*ConfirmationContext, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("user store is not initialized")
	}

	payload, err := s.redis.Get(ctx, confirmKey(userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch confirmation: %w", err)
	}

	var confirm ConfirmationContext
	if err := json.Unmarshal([]byte(payload), &confirm); err != nil {
		return nil, nil
	}
	return &confirm, nil
}

// ClearConfirmation drops any pending confirmation for the user.
func (s *UserStore) ClearConfirmation(ctx context.Context, userID int64) error {
	if s == nil || s.redis == nil {
		return errors.New("user store is not initialized")
	}
	return s.redis.Del(ctx, confirmKey(userID))
}

func userKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func confirmKey(userID int64) string {
	return fmt.Sprintf("confirm:%d", userID)
}
