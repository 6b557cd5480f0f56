package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalMonthLocker_Exclusive(t *testing.T) {
	l := NewLocalMonthLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "2026-03", time.Minute)
	if err != nil || !ok {
		t.Fatalf("首次加锁应成功: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, "2026-03", time.Minute); ok {
		t.Error("同一月份不应重复加锁")
	}
	if _, ok, _ := l.TryLock(ctx, "2026-04", time.Minute); !ok {
		t.Error("不同月份应可同时加锁")
	}

	unlock()
	unlock() // 重复释放无副作用
	if _, ok, _ := l.TryLock(ctx, "2026-03", time.Minute); !ok {
		t.Error("释放后应可再次加锁")
	}
}

func TestLocalMonthLocker_Concurrent(t *testing.T) {
	l := NewLocalMonthLocker()
	var (
		wg      sync.WaitGroup
		winners int32
		start   = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := l.TryLock(context.Background(), "2026-05", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Errorf("并发加锁应只有一个成功，实际=%d", winners)
	}
}
