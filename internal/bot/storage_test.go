package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vpsdash/vpsdash/internal/secret"
)

func testCipher(t *testing.T) *secret.Cipher {
	t.Helper()
	key, err := secret.GenerateKey()
	require.NoError(t, err)
	cipher, err := secret.NewCipher(key)
	require.NoError(t, err)
	return cipher
}

func TestUserDataRoundTripIsEncrypted(t *testing.T) {
	redis := newFakeRedis()
	store := NewUserStore(redis, testCipher(t))
	ctx := context.Background()

	data := UserData{
		APIKey:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Preferences: Preferences{Notifications: true, AutoRefresh: true},
		LastActive:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveUserData(ctx, 42, data))

	// the raw redis value must not leak the key
	raw := redis.values["user:42"]
	require.NotEmpty(t, raw)
	require.NotContains(t, raw, data.APIKey)

	loaded, err := store.GetUserData(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, data, *loaded)
}

func TestGetUserDataUnknownUser(t *testing.T) {
	store := NewUserStore(newFakeRedis(), testCipher(t))

	loaded, err := store.GetUserData(context.Background(), 7)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestGetUserDataAfterKeyRotation(t *testing.T) {
	redis := newFakeRedis()
	ctx := context.Background()

	store := NewUserStore(redis, testCipher(t))
	require.NoError(t, store.SaveUserData(ctx, 42, UserData{APIKey: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}))

	// a different key cannot open the old blob; treated as absent
	rotated := NewUserStore(redis, testCipher(t))
	loaded, err := rotated.GetUserData(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestConfirmationRoundTripAndTTL(t *testing.T) {
	redis := newFakeRedis()
	store := NewUserStore(redis, testCipher(t))
	ctx := context.Background()

	confirm := ConfirmationContext{
		Action:    "stopall",
		MessageID: 99,
		ServerIDs: []string{"srv-1", "srv-2"},
	}
	require.NoError(t, store.SaveConfirmation(ctx, 42, confirm))
	require.Equal(t, 5*time.Minute, redis.ttls["confirm:42"])

	loaded, err := store.GetConfirmation(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "stopall", loaded.Action)
	require.Equal(t, 99, loaded.MessageID)
	require.Equal(t, []string{"srv-1", "srv-2"}, loaded.ServerIDs)
	require.False(t, loaded.Timestamp.IsZero())

	require.NoError(t, store.ClearConfirmation(ctx, 42))
	loaded, err = store.GetConfirmation(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSaveUserDataRequiresCipher(t *testing.T) {
	store := NewUserStore(newFakeRedis(), nil)
	err := store.SaveUserData(context.Background(), 42, UserData{APIKey: "k"})
	require.Error(t, err)
}
