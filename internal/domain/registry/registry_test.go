package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(channel.Deps{
		Logger:  logging.NewNop(),
		Metrics: monitoring.NewMetrics(),
	}, Options{})
	t.Cleanup(r.CloseAll)
	return r
}

func TestCreateAssignsSequentialIDsAcrossKinds(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	kinds := []channel.Kind{channel.KindStream, channel.KindQueue, channel.KindSharedBuffer, channel.KindQueue}
	for i, kind := range kinds {
		meta, ch, err := r.Create(ctx, CreateRequest{Kind: kind, Name: "c"})
		require.NoError(t, err)
		require.NotNil(t, ch)
		assert.Equal(t, i+1, meta.ID)
		assert.Equal(t, kind, meta.Kind)
	}

	ids := make([]int, 0)
	for _, m := range r.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestCreateRejectsBadInputWithoutConsumingID(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	_, _, err := r.Create(ctx, CreateRequest{Kind: "socket", Name: "x"})
	assert.ErrorIs(t, err, channel.ErrUnknownKind)

	_, _, err = r.Create(ctx, CreateRequest{Kind: channel.KindSharedBuffer, Name: "x", Options: Options{Capacity: -1}})
	assert.ErrorIs(t, err, channel.ErrInvalidCapacity)

	meta, _, err := r.Create(ctx, CreateRequest{Kind: channel.KindQueue, Name: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.ID)
}

func TestCreateAppliesDefaultsAndAliases(t *testing.T) {
	r := New(channel.Deps{}, Options{Capacity: 32})
	defer r.CloseAll()

	meta, ch, err := r.Create(context.Background(), CreateRequest{Kind: "shm", Name: "status"})
	require.NoError(t, err)

	assert.Equal(t, channel.KindSharedBuffer, meta.Kind)
	assert.Equal(t, 32, meta.Capacity)
	assert.True(t, meta.AllowedSenders.Empty())
	assert.True(t, meta.AllowedReceivers.Empty())
	assert.True(t, ch.Send(42, []byte("anyone may write")))
}

func TestLookupAndAuthorizationIsDelegated(t *testing.T) {
	r := newRegistry(t)

	meta, _, err := r.Create(context.Background(), CreateRequest{
		Kind:             channel.KindQueue,
		Name:             "jobs",
		AllowedSenders:   security.NewActorSet(1),
		AllowedReceivers: security.NewActorSet(2),
	})
	require.NoError(t, err)

	ch, ok := r.Lookup(meta.ID)
	require.True(t, ok)
	assert.False(t, ch.Send(3, []byte("bad")))
	assert.True(t, ch.Send(1, []byte("hi")))

	got, ok := ch.Receive(context.Background(), 2, channel.NonBlocking())
	require.True(t, ok)
	assert.Equal(t, "hi", string(got))

	_, ok = r.Lookup(99)
	assert.False(t, ok)
}

func TestCloseForgetsChannelAndNeverReusesID(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	first, ch, err := r.Create(ctx, CreateRequest{Kind: channel.KindQueue, Name: "a"})
	require.NoError(t, err)

	assert.True(t, r.Close(first.ID))
	assert.False(t, r.Close(first.ID))
	assert.False(t, ch.Send(1, []byte("x")))

	_, ok := r.Lookup(first.ID)
	assert.False(t, ok)
	assert.Empty(t, r.List())

	second, _, err := r.Create(ctx, CreateRequest{Kind: channel.KindQueue, Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
}

func TestCloseAll(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	var chans []channel.Channel
	for _, kind := range []channel.Kind{channel.KindStream, channel.KindQueue, channel.KindSharedBuffer} {
		_, ch, err := r.Create(ctx, CreateRequest{Kind: kind})
		require.NoError(t, err)
		chans = append(chans, ch)
	}

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	for _, ch := range chans {
		assert.False(t, ch.Send(1, []byte("x")))
	}
}

func TestConcurrentCreateYieldsUniqueIDs(t *testing.T) {
	r := newRegistry(t)

	const n = 50
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, _, err := r.Create(context.Background(), CreateRequest{Kind: channel.KindQueue})
			assert.NoError(t, err)
			ids <- meta.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for cid := range ids {
		assert.False(t, seen[cid], "duplicate id %d", cid)
		seen[cid] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "missing id %d", i)
	}
}

func TestCreateHonoursCancelledContext(t *testing.T) {
	r := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Create(ctx, CreateRequest{Kind: channel.KindQueue})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.Len())
}
