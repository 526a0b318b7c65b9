//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitylink/internal/event/cache"
	"communitylink/internal/event/models"
	"communitylink/internal/event/store"
	id "communitylink/pkg/domain"
	"communitylink/pkg/testutil/containers"
)

func seedUpcoming(t *testing.T, s *store.InMemory, name string) *models.Event {
	t.Helper()
	event, err := models.NewEvent(id.UserID(uuid.New()), name, time.Now().AddDate(0, 0, 7), models.Unlimited(), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), event))
	return event
}

func TestCacheReadThrough(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	source := store.NewInMemory()
	cached := cache.New(source, rc.Client, cache.WithTTL(time.Minute))

	ctx := context.Background()
	seedUpcoming(t, source, "Tree Planting")

	// First read misses and fills the cache.
	first, err := cached.ListUpcoming(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, first, 1)

	exists, err := rc.Client.Exists(ctx, "events:upcoming").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	// Second read is served from Redis.
	second, err := cached.ListUpcoming(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestCacheInvalidatedOnMutation(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	source := store.NewInMemory()
	cached := cache.New(source, rc.Client)

	ctx := context.Background()
	event := seedUpcoming(t, source, "Beach Cleanup")

	_, err := cached.ListUpcoming(ctx, time.Now())
	require.NoError(t, err)

	// A registration must drop the cached listing.
	_, err = cached.Register(ctx, event.ID, id.UserID(uuid.New()), time.Now())
	require.NoError(t, err)

	exists, err := rc.Client.Exists(ctx, "events:upcoming").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	// Next read reflects the new roster count.
	events, err := cached.ListUpcoming(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].EnrolledCount)
}
