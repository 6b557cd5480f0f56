package service

import (
	"context"
	"sync"
	"time"
)

// MonthLocker 月份生成锁；锁已被占用时返回 ok=false
type MonthLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// localMonthLocker 未配置 Redis 时使用的进程内锁，仅适用于单实例部署
type localMonthLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalMonthLocker 创建进程内月份锁
func NewLocalMonthLocker() MonthLocker {
	return &localMonthLocker{held: make(map[string]struct{})}
}

func (l *localMonthLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
