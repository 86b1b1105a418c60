package funds

import (
	"math/big"

	"github.com/bitrent/bitrent-ico/core/types"
)

type Bus struct {
	funds *Funds
}

func NewBus(funds *Funds) *Bus {
	return &Bus{funds: funds}
}

func (b *Bus) GetBalance(address types.Address) *big.Int {
	return b.funds.GetBalance(address)
}

func (b *Bus) AddBalance(address types.Address, value *big.Int) {
	b.funds.AddBalance(address, value)
}

func (b *Bus) SubBalance(address types.Address, value *big.Int) error {
	return b.funds.SubBalance(address, value)
}
