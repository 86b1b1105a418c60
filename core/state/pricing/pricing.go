package pricing

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state/bus"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/helpers"
	"github.com/bitrent/bitrent-ico/tree"
	amino "github.com/tendermint/go-amino"
)

const mainPrefix = byte('p')

var cdc = amino.NewCodec()

// Info is the persisted pricing state
type Info struct {
	Owner         types.Address
	OneTokenInWei []byte
	Whitelist     []types.Address
}

func (i *Info) isAllowed(address types.Address) bool {
	if address == i.Owner {
		return true
	}

	for _, a := range i.Whitelist {
		if a == address {
			return true
		}
	}

	return false
}

// RPricing is the read-only pricing strategy
type RPricing interface {
	OneTokenInWei() *big.Int
	CalculatePrice(wei *big.Int, decimals uint) (*big.Int, error)
	IsAllowed(address types.Address) bool
	Export(state *types.AppState)
}

// Pricing holds the token price and the whitelist of addresses allowed to
// change it.
type Pricing struct {
	info      *Info
	infoDirty bool

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewPricing(stateBus *bus.Bus, db *tree.ImmutableTree) *Pricing {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Pricing{
		bus: stateBus,
		db:  immutableTree,
	}
}

func (p *Pricing) immutableTree() *tree.ImmutableTree {
	db := p.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (p *Pricing) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	p.db.Store(immutableTree)
}

func (p *Pricing) OneTokenInWei() *big.Int {
	return big.NewInt(0).SetBytes(p.getInfo().OneTokenInWei)
}

// CalculatePrice converts a wei amount to raw token units at the current
// price. Fails until a price is set.
func (p *Pricing) CalculatePrice(wei *big.Int, decimals uint) (*big.Int, error) {
	price := p.OneTokenInWei()
	if price.Sign() == 0 {
		return nil, code.NewDivisionByZero()
	}

	amount := big.NewInt(0).Mul(wei, helpers.Pow10(decimals))

	return amount.Div(amount, price), nil
}

func (p *Pricing) IsAllowed(address types.Address) bool {
	return p.getInfo().isAllowed(address)
}

// SetOneTokenInWei updates the price. The caller must be the owner or
// whitelisted, checked on every call so revocation applies immediately.
func (p *Pricing) SetOneTokenInWei(caller types.Address, price *big.Int) error {
	info := p.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if price.Sign() < 0 {
		return code.NewInvalidParameter("price must not be negative")
	}

	p.lock.Lock()
	info.OneTokenInWei = price.Bytes()
	p.infoDirty = true
	p.lock.Unlock()

	p.bus.Events().AddEvent(&eventsdb.PriceChangeEvent{
		OneTokenInWei: price.String(),
	})

	return nil
}

// AllowAddress includes or excludes an address from the pricing whitelist
func (p *Pricing) AllowAddress(caller, address types.Address, allowed bool) error {
	info := p.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	if address.IsZero() {
		return code.NewZeroAddress()
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if allowed {
		for _, a := range info.Whitelist {
			if a == address {
				return nil
			}
		}

		info.Whitelist = append(info.Whitelist, address)
		p.infoDirty = true

		return nil
	}

	for i, a := range info.Whitelist {
		if a == address {
			info.Whitelist = append(info.Whitelist[:i], info.Whitelist[i+1:]...)
			p.infoDirty = true
			break
		}
	}

	return nil
}

func (p *Pricing) Import(state types.Pricing) {
	price := big.NewInt(0)
	if state.OneTokenInWei != "" {
		price.SetString(state.OneTokenInWei, 10)
	}

	p.lock.Lock()
	info := &Info{
		Owner:         state.Owner,
		OneTokenInWei: price.Bytes(),
	}
	info.Whitelist = append(info.Whitelist, state.Whitelist...)
	p.info = info
	p.infoDirty = true
	p.lock.Unlock()
}

func (p *Pricing) Export(state *types.AppState) {
	info := p.getInfo()
	state.Pricing = types.Pricing{
		Owner:         info.Owner,
		OneTokenInWei: p.OneTokenInWei().String(),
	}
	state.Pricing.Whitelist = append(state.Pricing.Whitelist, info.Whitelist...)
}

func (p *Pricing) Commit(db tree.MTree) error {
	if !p.isInfoDirty() {
		return nil
	}

	data, err := cdc.MarshalBinaryBare(p.getInfo())
	if err != nil {
		return fmt.Errorf("can't encode pricing info: %v", err)
	}

	db.Set([]byte{mainPrefix}, data)

	p.lock.Lock()
	p.infoDirty = false
	p.lock.Unlock()

	return nil
}

func (p *Pricing) getInfo() *Info {
	p.lock.RLock()
	info := p.info
	p.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := p.immutableTree().Get([]byte{mainPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode pricing info: %s", err))
		}
	}

	p.lock.Lock()
	p.info = info
	p.lock.Unlock()

	return info
}

func (p *Pricing) isInfoDirty() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.infoDirty
}
