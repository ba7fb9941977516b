package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	gets    int
	inserts int
}

func (c *countingStore) GetCurrent(ctx context.Context, collection string) (Record, error) {
	c.gets++
	return c.Store.GetCurrent(ctx, collection)
}

func (c *countingStore) InsertCurrent(ctx context.Context, collection string, data map[string]any, keep bool) (string, error) {
	c.inserts++
	return c.Store.InsertCurrent(ctx, collection, data, keep)
}

func TestCached_FallsThroughWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: openTestStore(t)}

	c := NewCached(inner, "127.0.0.1:1", time.Second, nil)
	t.Cleanup(func() { _ = c.client.Close() })

	_, err := c.InsertCurrent(ctx, "weather", map[string]any{"safe": false}, false)
	require.NoError(t, err)

	r, err := c.GetCurrent(ctx, "weather")
	require.NoError(t, err)
	require.Equal(t, false, r.Data["safe"])

	_, err = c.GetCurrent(ctx, "mount")
	require.True(t, errors.Is(err, ErrNotFound))

	require.Equal(t, 2, inner.gets)
	require.Equal(t, 1, inner.inserts)
}

func TestCacheKey(t *testing.T) {
	require.Equal(t, "panoptes:current:weather", CacheKey("weather"))
}

func TestCached_HitMatchesStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	inner := &countingStore{Store: openTestStore(t)}

	c := NewCached(inner, mr.Addr(), time.Minute, nil)
	t.Cleanup(func() { _ = c.client.Close() })

	ts := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	_, err := c.InsertCurrent(ctx, "weather", map[string]any{
		"sky_temp_ticks": 1234567,
		"sky_temp":       -12.5,
		"read_at":        ts,
		"wind":           map[string]any{"gust": 12},
	}, false)
	require.NoError(t, err)

	miss, err := c.GetCurrent(ctx, "weather")
	require.NoError(t, err)
	require.True(t, mr.Exists(CacheKey("weather")))

	hit, err := c.GetCurrent(ctx, "weather")
	require.NoError(t, err)
	require.Equal(t, 1, inner.gets)

	if diff := cmp.Diff(miss, hit); diff != "" {
		t.Fatalf("cache hit differs from store (-store +cache):\n%s", diff)
	}
	require.Equal(t, int64(1234567), hit.Data["sky_temp_ticks"])
	require.Equal(t, ts, hit.Data["read_at"])
	require.True(t, miss.Date.Equal(hit.Date))
}

func TestCached_InsertInvalidates(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	inner := &countingStore{Store: openTestStore(t)}

	c := NewCached(inner, mr.Addr(), time.Minute, nil)
	t.Cleanup(func() { _ = c.client.Close() })

	_, err := c.InsertCurrent(ctx, "state", map[string]any{"state": "sleeping"}, false)
	require.NoError(t, err)
	_, err = c.GetCurrent(ctx, "state")
	require.NoError(t, err)
	require.True(t, mr.Exists(CacheKey("state")))

	_, err = c.InsertCurrent(ctx, "state", map[string]any{"state": "observing"}, false)
	require.NoError(t, err)
	require.False(t, mr.Exists(CacheKey("state")))

	r, err := c.GetCurrent(ctx, "state")
	require.NoError(t, err)
	require.Equal(t, "observing", r.Data["state"])
	require.Equal(t, 2, inner.gets)
}

func TestCached_DropsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	inner := &countingStore{Store: openTestStore(t)}

	c := NewCached(inner, mr.Addr(), time.Minute, nil)
	t.Cleanup(func() { _ = c.client.Close() })

	_, err := inner.Store.InsertCurrent(ctx, "mount", map[string]any{"state": "parked"}, false)
	require.NoError(t, err)
	require.NoError(t, mr.Set(CacheKey("mount"), "{not bson"))

	r, err := c.GetCurrent(ctx, "mount")
	require.NoError(t, err)
	require.Equal(t, "parked", r.Data["state"])
	require.Equal(t, 1, inner.gets)
}
