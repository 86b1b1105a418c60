package bus

import (
	"math/big"
)

type Checker interface {
	AddLiability(*big.Int)
	AddCustody(*big.Int)
}
