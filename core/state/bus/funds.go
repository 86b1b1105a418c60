package bus

import (
	"math/big"

	"github.com/bitrent/bitrent-ico/core/types"
)

type Funds interface {
	GetBalance(types.Address) *big.Int
	AddBalance(types.Address, *big.Int)
	SubBalance(types.Address, *big.Int) error
}
