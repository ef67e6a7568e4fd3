package channel

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipc-control-room/ipc-project/internal/domain/security"
)

func newSharedBuffer(t *testing.T, capacity int) *SharedBuffer {
	t.Helper()
	deps, _ := testDeps(t)
	b, err := NewSharedBuffer(meta(1, "shm", nil, nil), deps, capacity)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestSharedBufferRejectsBadCapacity(t *testing.T) {
	deps, _ := testDeps(t)
	for _, capacity := range []int{0, -1} {
		_, err := NewSharedBuffer(meta(1, "shm", nil, nil), deps, capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestSharedBufferStartsEmpty(t *testing.T) {
	b := newSharedBuffer(t, 16)

	got, ok := b.Read(1)
	require.True(t, ok)
	assert.Equal(t, "", got)
	assert.Equal(t, 16, b.Capacity())
	assert.Equal(t, 16, b.Metadata().Capacity)
	assert.Equal(t, KindSharedBuffer, b.Metadata().Kind)
}

func TestSharedBufferTruncatesToCapacityMinusOne(t *testing.T) {
	b := newSharedBuffer(t, 8)

	require.True(t, b.Write(1, "hello world"))

	got, ok := b.Read(2)
	require.True(t, ok)
	assert.Equal(t, "hello w", got)
}

func TestSharedBufferOverwriteLeavesNoResidue(t *testing.T) {
	b := newSharedBuffer(t, 32)

	require.True(t, b.Write(1, "hello world"))
	require.True(t, b.Write(1, "hi"))

	got, ok := b.Read(2)
	require.True(t, ok)
	assert.Equal(t, "hi", got)
}

func TestSharedBufferCapacityOneAlwaysReadsEmpty(t *testing.T) {
	b := newSharedBuffer(t, 1)

	require.True(t, b.Write(1, "anything"))
	got, ok := b.Read(1)
	require.True(t, ok)
	assert.Equal(t, "", got)
}

func TestSharedBufferReadStopsAtZeroByte(t *testing.T) {
	b := newSharedBuffer(t, 16)

	require.True(t, b.Write(1, "ab\x00cd"))
	got, _ := b.Read(1)
	assert.Equal(t, "ab", got)
}

func TestSharedBufferReplacesInvalidUTF8(t *testing.T) {
	b := newSharedBuffer(t, 16)

	require.True(t, b.Send(1, []byte{'o', 'k', 0xff, 0xfe, '!'}))

	got, ok := b.Read(1)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "ok"))
	assert.True(t, strings.HasSuffix(got, "!"))
	assert.Contains(t, got, "\uFFFD")
	assert.NotContains(t, got, "\xff")
}

func TestSharedBufferTruncationMaySplitRune(t *testing.T) {
	// "é" is two bytes; capacity 2 keeps only its first byte.
	b := newSharedBuffer(t, 2)

	require.True(t, b.Write(1, "é"))
	got, ok := b.Read(1)
	require.True(t, ok)
	assert.Equal(t, "\uFFFD", got)
}

func TestSharedBufferReceiveIgnoresMode(t *testing.T) {
	b := newSharedBuffer(t, 16)
	require.True(t, b.Write(1, "state"))

	for _, opts := range []ReceiveOptions{NonBlocking(), Blocking()} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		got, ok := b.Receive(ctx, 1, opts)
		require.True(t, ok)
		assert.Equal(t, "state", string(got))
	}
}

func TestSharedBufferReadsAreRepeatable(t *testing.T) {
	b := newSharedBuffer(t, 16)
	require.True(t, b.Write(1, "keep"))

	for i := 0; i < 3; i++ {
		got, _ := b.Read(1)
		assert.Equal(t, "keep", got)
	}
}

func TestSharedBufferAuthorization(t *testing.T) {
	deps, _ := testDeps(t)
	b, err := NewSharedBuffer(meta(1, "shm", []security.ActorID{1}, []security.ActorID{2}), deps, 16)
	require.NoError(t, err)
	defer b.Close()

	assert.False(t, b.Write(3, "bad"))
	require.True(t, b.Write(1, "good"))

	_, ok := b.Read(3)
	assert.False(t, ok)

	got, ok := b.Read(2)
	require.True(t, ok)
	assert.Equal(t, "good", got)
}

func TestSharedBufferReadsAreNeverTorn(t *testing.T) {
	b := newSharedBuffer(t, 64)
	long := strings.Repeat("a", 40)
	short := "bb"
	require.True(t, b.Write(1, long))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				b.Write(1, short)
			} else {
				b.Write(1, long)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		got, ok := b.Read(2)
		require.True(t, ok)
		if got != long && got != short {
			close(stop)
			wg.Wait()
			t.Fatalf("torn read: %q", got)
		}
	}
	close(stop)
	wg.Wait()
}
