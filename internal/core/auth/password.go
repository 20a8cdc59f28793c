package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher 一次一密盐的慢哈希。bcrypt 是纯 CPU 活，用信号量限制并发，
// 避免登录风暴把处理 I/O 的 goroutine 全部饿死。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost int, workers int64) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 8
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(workers)}
}

func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 不匹配是正常的 false，不是错误
func (h *Hasher) Verify(ctx context.Context, plaintext, hashed string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
