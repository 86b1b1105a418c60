package checker

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/state/bus"
)

// Checker accumulates vault ledger and custody deltas between commits and
// verifies that liabilities never grow faster than custody.
type Checker struct {
	liability *big.Int
	custody   *big.Int

	lock sync.RWMutex
}

func NewChecker(bus *bus.Bus) *Checker {
	checker := &Checker{
		liability: big.NewInt(0),
		custody:   big.NewInt(0),
	}
	bus.SetChecker(checker)

	return checker
}

// AddLiability records a vault ledger delta
func (c *Checker) AddLiability(value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.liability.Add(c.liability, value)
}

// AddCustody records a real vault token balance delta
func (c *Checker) AddCustody(value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.custody.Add(c.custody, value)
}

// Reset clears accumulated deltas
func (c *Checker) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.liability = big.NewInt(0)
	c.custody = big.NewInt(0)
}

func (c *Checker) Check() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.liability.Cmp(c.custody) == 1 {
		return fmt.Errorf("invariants error: ledger grew by %s, custody by %s",
			c.liability.String(), c.custody.String())
	}

	return nil
}
