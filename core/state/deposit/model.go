package deposit

import (
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/bitrent/bitrent-ico/core/types"
)

// Model is the cumulative donation of one address
type Model struct {
	Value []byte

	address   types.Address
	markDirty func(address types.Address)

	lock sync.RWMutex
}

func (m *Model) Donated() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).SetBytes(m.Value)
}

func (m *Model) SetDonated(value *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Value = value.Bytes()
	m.markDirty(m.address)
}

func sortAddresses(keys []types.Address) {
	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})
}
