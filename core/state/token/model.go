package token

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/types"
)

// Model is the persisted token balance of one address
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

// Allowance is the persisted spending approval of one owner for one spender
type Allowance struct {
	Value []byte

	key       allowanceKey
	markDirty func(key allowanceKey)

	lock sync.RWMutex
}

func (a *Allowance) Amount() *big.Int {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return big.NewInt(0).SetBytes(a.Value)
}

func (a *Allowance) SetAmount(value *big.Int) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.Value = value.Bytes()
	a.markDirty(a.key)
}

// Info is the persisted asset descriptor
type Info struct {
	Owner          types.Address
	TotalSupply    []byte
	Released       bool
	Paused         bool
	ReleaseAgent   types.Address
	TransferAgents []types.Address
}

func (i *Info) isTransferAgent(address types.Address) bool {
	for _, agent := range i.TransferAgents {
		if agent == address {
			return true
		}
	}

	return false
}
