package crowdsale

import (
	"math/big"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/helpers"
)

// PresaleFinalizeAgent prices the presale token pool from the deposits
// collected so far. It settles nothing itself, the deposit has already
// forwarded every wei to the wallet.
type PresaleFinalizeAgent struct {
	state *state.State
}

func NewPresaleFinalizeAgent(st *state.State) *PresaleFinalizeAgent {
	return &PresaleFinalizeAgent{state: st}
}

// Finalize sets oneTokenInWei so the presale pool exactly absorbs the
// raised wei.
func (a *PresaleFinalizeAgent) Finalize() error {
	agent := a.state.Sale.FinalizeAgent()
	if agent.IsZero() {
		return code.NewInvalidParameter("finalize agent is not set")
	}

	pool := a.state.Sale.PresaleTokenPool()
	if pool.Sign() != 1 {
		return code.NewInvalidParameter("presale token pool is not set")
	}

	raised := a.state.Deposit.Total()
	price := big.NewInt(0).Mul(raised, helpers.Pow10(types.TokenDecimals))
	price.Div(price, pool)

	return a.state.Pricing.SetOneTokenInWei(agent, price)
}
