package token

import (
	"math/big"

	"github.com/bitrent/bitrent-ico/core/types"
)

type Bus struct {
	token *Token
}

func NewBus(token *Token) *Bus {
	return &Bus{token: token}
}

func (b *Bus) GetBalance(address types.Address) *big.Int {
	return b.token.GetBalance(address)
}

func (b *Bus) Transfer(from, to types.Address, value *big.Int) error {
	return b.token.Transfer(from, to, value)
}

func (b *Bus) TransferFrom(spender, from, to types.Address, value *big.Int) error {
	return b.token.TransferFrom(spender, from, to, value)
}
