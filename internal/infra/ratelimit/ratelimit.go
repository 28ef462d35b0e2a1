// Package ratelimit 提供进程级的最小间隔限速器，保护上游词典站点。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter 串行化出站请求：相邻两次放行至少间隔 interval。
//
// 约束：
// - 并发调用方共享同一个 Limiter 实例即可获得全局限速
// - 提前到达的调用阻塞（排队）等待放行，而不是被丢弃
// - nil Limiter 等价于不限速（测试可直接注入 nil）
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// New 构造限速器；interval <= 0 表示不限速。
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Wait 阻塞到本次调用被放行，或 ctx 结束。
//
// 每次调用先占用一个时间槽再睡眠，因此多个并发调用会按到达顺序
// 依次排队，不会出现“同时醒来挤在一起”的情况。
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	l.next = now.Add(wait + l.interval)
	l.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
