package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOrderLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalOrderLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "ORD-1")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen, "critical section must never be shared")
}

func TestLocalOrderLocker_DistinctOrdersDoNotBlock(t *testing.T) {
	locker := NewLocalOrderLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "ORD-A")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, "ORD-B")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different order must not block")
	}
}

func TestLocalOrderLocker_ContextCancel(t *testing.T) {
	locker := NewLocalOrderLocker()

	unlock, err := locker.Lock(context.Background(), "ORD-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "ORD-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	// 锁释放后可以再次正常获取
	unlock2, err := locker.Lock(context.Background(), "ORD-1")
	require.NoError(t, err)
	unlock2()
}
