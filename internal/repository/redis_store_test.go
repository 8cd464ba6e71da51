package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-leave-api/internal/models"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

// fakeRedis implements the GET/SET/DEL subset RedisStore relies on.
type fakeRedis struct {
	redis.Cmdable
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.failGet != nil {
		cmd.SetErr(f.failGet)
		return cmd
	}
	value, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(value)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisStore(client, "leave:", nil)

	ledger := sampleLedger()
	require.NoError(t, store.Save(ctx, KeyLedger, ledger))
	assert.Contains(t, client.data, "leave:ledger")
	assert.Equal(t, time.Duration(0), client.ttls["leave:ledger"])

	var loadedLedger []models.LeaveRequest
	require.NoError(t, store.Load(ctx, KeyLedger, &loadedLedger))
	assert.Equal(t, ledger, loadedLedger)

	directory := sampleDirectory()
	require.NoError(t, store.Save(ctx, KeyDirectory, directory))
	var loadedDirectory map[string]models.User
	require.NoError(t, store.Load(ctx, KeyDirectory, &loadedDirectory))
	assert.Equal(t, directory, loadedDirectory)

	session := sampleSession()
	require.NoError(t, store.Save(ctx, SessionKey(session.ID), session))
	var loadedSession models.Session
	require.NoError(t, store.Load(ctx, SessionKey(session.ID), &loadedSession))
	assert.Equal(t, session, loadedSession)
}

func TestRedisStoreMissAndFailure(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisStore(client, "leave:", nil)

	var session models.Session
	assert.True(t, errors.Is(store.Load(ctx, SessionKey("nope"), &session), appErrors.ErrStoreMiss))

	require.NoError(t, store.Save(ctx, SessionKey("s1"), sampleSession()))
	require.NoError(t, store.Delete(ctx, SessionKey("s1")))
	assert.NotContains(t, client.data, "leave:session:s1")

	client.failGet = errors.New("connection refused")
	err := store.Load(ctx, KeyLedger, &[]models.LeaveRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrStoreMiss))
}
