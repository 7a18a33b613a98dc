package usecase

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"realestate-marketplace-onchain/model"
)

// actionGuard はアクションごとに同時実行を1つに制限する
type actionGuard struct {
	mu    sync.Mutex
	slots map[string]*semaphore.Weighted
}

func newActionGuard() *actionGuard {
	return &actionGuard{slots: make(map[string]*semaphore.Weighted)}
}

// acquire は空きがなければ model.ErrActionInFlight を返す。戻り値のreleaseを必ず呼ぶこと
func (g *actionGuard) acquire(action string) (release func(), err error) {
	g.mu.Lock()
	slot, ok := g.slots[action]
	if !ok {
		slot = semaphore.NewWeighted(1)
		g.slots[action] = slot
	}
	g.mu.Unlock()

	if !slot.TryAcquire(1) {
		return nil, model.ErrActionInFlight
	}
	return func() { slot.Release(1) }, nil
}
