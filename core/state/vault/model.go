package vault

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/types"
)

// Model is the persisted ledger entry of one vault account. Its presence
// marks the account as registered even at zero balance.
type Model struct {
	Value []byte

	id        types.AccountID
	markDirty func(id types.AccountID)

	lock sync.RWMutex
}

func (m *Model) Balance() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).SetBytes(m.Value)
}

func (m *Model) SetBalance(value *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Value = value.Bytes()
	m.markDirty(m.id)
}
