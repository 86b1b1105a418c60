package bus

import (
	"math/big"

	"github.com/bitrent/bitrent-ico/core/types"
)

type Token interface {
	GetBalance(types.Address) *big.Int
	Transfer(from, to types.Address, value *big.Int) error
	TransferFrom(spender, from, to types.Address, value *big.Int) error
}
