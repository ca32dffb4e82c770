package ledger

import (
	"fmt"
	"time"

	"github.com/focusdiff/focusdiff/internal/pkg/cache"
)

// balanceTTL bounds how stale a cached balance can get if an update slips
// past the write-through in Adjust (e.g. a manual DB correction).
const balanceTTL = 60 * time.Second

// BalanceCache is the read-side cache for per-user balances. Adjust writes
// through it so a cached value never survives a ledger mutation.
type BalanceCache interface {
	Get(userID uint) (int, bool)
	Set(userID uint, balance int)
	Invalidate(userID uint)
}

type redisBalanceCache struct{}

// NewBalanceCache returns a BalanceCache on the shared Redis cache.
func NewBalanceCache() BalanceCache {
	return redisBalanceCache{}
}

func balanceKey(userID uint) string {
	return fmt.Sprintf("ledger:balance:%d", userID)
}

func (redisBalanceCache) Get(userID uint) (int, bool) {
	v, err := cache.GetInt(balanceKey(userID))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (redisBalanceCache) Set(userID uint, balance int) {
	_ = cache.Set(balanceKey(userID), balance, balanceTTL)
}

func (redisBalanceCache) Invalidate(userID uint) {
	_ = cache.Delete(balanceKey(userID))
}
