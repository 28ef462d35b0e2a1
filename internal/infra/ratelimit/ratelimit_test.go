package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWait_EnforcesMinInterval(t *testing.T) {
	const interval = 30 * time.Millisecond
	l := New(interval)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	}
	// 第 1 次立即放行，第 2/3 次各等待一个 interval。
	if got := time.Since(start); got < 2*interval {
		t.Fatalf("3 次放行至少需要 %v，实际 %v", 2*interval, got)
	}
}

func TestWait_NilLimiterIsNoop(t *testing.T) {
	var l *Limiter
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("nil Limiter 不应引入等待")
	}
}

func TestWait_ContextCancelUnblocks(t *testing.T) {
	l := New(time.Hour)
	// 占掉第一个槽，让后续调用必须等待。
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatalf("期望 ctx 超时错误，但得到 nil")
	}
}

func TestWait_ConcurrentCallersSerialize(t *testing.T) {
	const interval = 20 * time.Millisecond
	l := New(interval)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Errorf("不期望错误：%v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 4 {
		t.Fatalf("期望 4 次放行，实际 %d", len(times))
	}
	// 排序后相邻放行的间隔不应显著小于 interval（留出调度误差）。
	for i := 0; i+1 < len(times); i++ {
		for j := i + 1; j < len(times); j++ {
			if times[j].Before(times[i]) {
				times[i], times[j] = times[j], times[i]
			}
		}
	}
	for i := 1; i < len(times); i++ {
		if d := times[i].Sub(times[i-1]); d < interval-10*time.Millisecond {
			t.Fatalf("相邻放行间隔过短：%v", d)
		}
	}
}
