package proxy

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/crowdsale"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/core/types"
)

// Proxy is the backend gateway: every operation is performed on behalf of
// an off-chain caller address checked against the backend allow-list.
type Proxy struct {
	state     *state.State
	crowdsale *crowdsale.Crowdsale

	lock sync.Mutex
}

func NewProxy(st *state.State, cs *crowdsale.Crowdsale) *Proxy {
	return &Proxy{state: st, crowdsale: cs}
}

// AddTokens pulls tokens from the token owner's allowance into the vault
// and credits the off-chain account.
func (p *Proxy) AddTokens(caller types.Address, id types.AccountID, value *big.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.state.Sale.IsBackendAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	return p.state.Vault.ReceiveTokens(caller, p.state.Token.Owner(), id, value)
}

// MoveTokens debits the off-chain account and delivers real tokens to the
// destination address.
func (p *Proxy) MoveTokens(caller types.Address, id types.AccountID, to types.Address, value *big.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.state.Sale.IsBackendAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	return p.state.Vault.TransferFromAccount(caller, id, to, value)
}

// MoveBetweenAccounts moves ledger balance between two off-chain accounts
func (p *Proxy) MoveBetweenAccounts(caller types.Address, from, to types.AccountID, value *big.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.state.Sale.IsBackendAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	return p.state.Vault.MoveToAccount(caller, from, to, value)
}

// MoveAllBetweenAccounts drains one off-chain account into another
func (p *Proxy) MoveAllBetweenAccounts(caller types.Address, from, to types.AccountID) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.state.Sale.IsBackendAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	return p.state.Vault.MoveAllToAccount(caller, from, to)
}

// Allocate delegates to the crowdsale allocation flow, converting the
// wei equivalent through the pricing strategy
func (p *Proxy) Allocate(caller, to types.Address, id types.AccountID, wei *big.Int) error {
	return p.crowdsale.Allocate(caller, to, id, wei)
}

// MoveAllTokens drains the off-chain account, delivering real tokens to
// the destination address
func (p *Proxy) MoveAllTokens(caller types.Address, id types.AccountID, to types.Address) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.state.Sale.IsBackendAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	return p.state.Vault.TransferAllFromAccount(caller, id, to)
}

// AllowAddress manages the backend allow-list
func (p *Proxy) AllowAddress(caller, address types.Address, allowed bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.state.Sale.AllowBackend(caller, address, allowed)
}
