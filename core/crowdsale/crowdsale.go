package crowdsale

import (
	"encoding/json"
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/core/state/sale"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/helpers"
)

// Crowdsale drives the sale phase machine over the state layer. All
// mutating entry points are serialized.
type Crowdsale struct {
	state *state.State

	lock sync.Mutex
}

func NewCrowdsale(st *state.State) *Crowdsale {
	return &Crowdsale{state: st}
}

func (c *Crowdsale) Status() sale.Status {
	return c.state.Sale.Status()
}

// StartPresale opens the presale phase
func (c *Crowdsale) StartPresale(caller types.Address) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if caller != c.state.Sale.Owner() {
		return code.NewNotAuthorized(caller.String())
	}

	status := c.state.Sale.Status()
	if status != sale.StatusUnknown || c.state.Sale.PresaleFinished() {
		return code.NewInvalidStateTransition(status.String(), sale.StatusPresale.String())
	}

	c.setStatus(status, sale.StatusPresale)

	return nil
}

// FinalizePresale prices the presale pool from the collected deposits and
// returns the sale to the intermission before the ICO.
func (c *Crowdsale) FinalizePresale(caller types.Address) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if caller != c.state.Sale.Owner() {
		return code.NewNotAuthorized(caller.String())
	}

	status := c.state.Sale.Status()
	if status != sale.StatusPresale {
		return code.NewInvalidStateTransition(status.String(), sale.StatusUnknown.String())
	}

	agent := NewPresaleFinalizeAgent(c.state)
	if err := agent.Finalize(); err != nil {
		return err
	}

	c.state.Sale.AddWeiRaised(c.state.Deposit.Total())
	c.state.Sale.SetPresaleFinished()
	c.setStatus(status, sale.StatusUnknown)

	return nil
}

// StartIco opens the ICO phase. The presale must have been finalized.
func (c *Crowdsale) StartIco(caller types.Address) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if caller != c.state.Sale.Owner() {
		return code.NewNotAuthorized(caller.String())
	}

	status := c.state.Sale.Status()
	if status != sale.StatusUnknown || !c.state.Sale.PresaleFinished() {
		return code.NewInvalidStateTransition(status.String(), sale.StatusIco.String())
	}

	c.setStatus(status, sale.StatusIco)

	return nil
}

// FinalizeIco closes the sale for good
func (c *Crowdsale) FinalizeIco(caller types.Address) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if caller != c.state.Sale.Owner() {
		return code.NewNotAuthorized(caller.String())
	}

	status := c.state.Sale.Status()
	if status != sale.StatusIco {
		return code.NewInvalidStateTransition(status.String(), sale.StatusFinalized.String())
	}

	c.setStatus(status, sale.StatusFinalized)

	return nil
}

// Invest converts an incoming wei payment into tokens at the current
// price. Tokens come out of the token owner's allowance granted to the
// sale operator, the wei is forwarded to the quorum wallet.
func (c *Crowdsale) Invest(investor types.Address, wei *big.Int) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	status := c.state.Sale.Status()
	if status != sale.StatusIco {
		return code.NewInvalidStateTransition(status.String(), sale.StatusIco.String())
	}

	if investor.IsZero() {
		return code.NewZeroAddress()
	}

	if wei == nil || wei.Sign() != 1 {
		return code.NewInvalidParameter("investment must be positive")
	}

	amount, err := c.state.Pricing.CalculatePrice(wei, types.TokenDecimals)
	if err != nil {
		return err
	}

	operator := c.state.Sale.Owner()
	tokenOwner := c.state.Token.Owner()
	if err := c.state.Token.TransferFrom(operator, tokenOwner, investor, amount); err != nil {
		return err
	}

	c.state.Funds.AddBalance(c.state.Wallet.Address(), wei)
	c.state.Sale.AddWeiRaised(wei)
	c.state.Sale.AddTokensSold(amount)
	c.state.Sale.AddInvested(investor, wei)

	c.state.Events().AddEvent(&eventsdb.InvestmentEvent{
		Address:     investor,
		WeiAmount:   wei.String(),
		TokenAmount: amount.String(),
	})

	return nil
}

// Allocate converts a wei equivalent collected off-chain into tokens at
// the current price and delivers them, in any phase, gated by the
// allocation allow-list. The account id attributes the purchase to the
// backend account it was paid from.
func (c *Crowdsale) Allocate(caller, to types.Address, id types.AccountID, wei *big.Int) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.state.Sale.IsAllocationAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if to.IsZero() {
		return code.NewZeroAddress()
	}

	if wei == nil || wei.Sign() != 1 {
		return code.NewInvalidParameter("allocation must be positive")
	}

	amount, err := c.state.Pricing.CalculatePrice(wei, types.TokenDecimals)
	if err != nil {
		return err
	}

	operator := c.state.Sale.Owner()
	tokenOwner := c.state.Token.Owner()
	if err := c.state.Token.TransferFrom(operator, tokenOwner, to, amount); err != nil {
		return err
	}

	c.state.Sale.AddTokensSold(amount)
	c.state.Events().AddEvent(&eventsdb.AllocationEvent{
		Address:     to,
		AccountID:   id,
		WeiAmount:   wei.String(),
		TokenAmount: amount.String(),
	})

	return nil
}

// AllowAllocation manages the allocation allow-list
func (c *Crowdsale) AllowAllocation(caller, address types.Address, allowed bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state.Sale.AllowAllocation(caller, address, allowed)
}

// SetFinalizeAgent designates the presale finalize agent and whitelists it
// with the pricing strategy
func (c *Crowdsale) SetFinalizeAgent(caller, agent types.Address) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if caller != c.state.Sale.Owner() {
		return code.NewNotAuthorized(caller.String())
	}

	if agent.IsZero() {
		return code.NewZeroAddress()
	}

	previous := c.state.Sale.FinalizeAgent()
	if !previous.IsZero() {
		if err := c.state.Pricing.AllowAddress(caller, previous, false); err != nil {
			return err
		}
	}

	if err := c.state.Pricing.AllowAddress(caller, agent, true); err != nil {
		return err
	}

	c.state.Sale.SetFinalizeAgent(agent)

	return nil
}

func (c *Crowdsale) setStatus(from, to sale.Status) {
	c.state.Sale.SetStatus(to)
	c.state.Events().AddEvent(&eventsdb.PhaseChangeEvent{
		From: from.String(),
		To:   to.String(),
	})
}

type walletCall struct {
	Method string `json:"method"`
	Price  string `json:"price,omitempty"`
}

// HandleWalletCall executes opaque wallet payloads once a proposal reaches
// quorum. The wallet address is the caller for authorization.
func (c *Crowdsale) HandleWalletCall(destination types.Address, data []byte) error {
	var call walletCall
	if err := json.Unmarshal(data, &call); err != nil {
		return code.NewInvalidParameter("malformed wallet call payload")
	}

	caller := c.state.Wallet.Address()

	switch call.Method {
	case "release_token":
		if err := c.state.Token.Release(caller); err != nil {
			return err
		}

		c.state.Events().AddEvent(&eventsdb.TokenReleaseEvent{Agent: caller})

		return nil
	case "set_price":
		if !helpers.IsValidBigInt(call.Price) {
			return code.NewInvalidParameter("price is not valid BigInt")
		}

		return c.state.Pricing.SetOneTokenInWei(caller, helpers.StringToBigInt(call.Price))
	}

	return code.NewInvalidParameter("unknown wallet call method " + call.Method)
}
