package funds

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/types"
)

// Model is the persisted wei balance of one address
type Model struct {
	Value []byte

	address   types.Address
	markDirty func(address types.Address)

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
	m.markDirty(m.address)
}
