// internal/service/payment/infrastructure/locker_local.go
package infrastructure

import (
	"context"
	"sync"
)

// LocalOrderLocker 是 port.OrderLocker 的进程内实现。
// 每个订单号对应一把互斥锁，锁对象带引用计数，订单处理完
// 没有等待者时回收，避免 map 无限增长。
type LocalOrderLocker struct {
	mu    sync.Mutex
	locks map[string]*refCountedLock
}

type refCountedLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{locks: make(map[string]*refCountedLock)}
}

// Lock 获取 orderID 对应的排他锁。不同订单的锁互不影响。
func (l *LocalOrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &refCountedLock{}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	// 支持 ctx 取消的阻塞获取
	acquired := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		// 后台 goroutine 拿到锁后立刻归还并释放引用
		go func() {
			<-acquired
			entry.mu.Unlock()
			l.release(orderID, entry)
		}()
		return nil, ctx.Err()
	}

	return func() {
		entry.mu.Unlock()
		l.release(orderID, entry)
	}, nil
}

func (l *LocalOrderLocker) release(orderID string, entry *refCountedLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, orderID)
	}
	l.mu.Unlock()
}
