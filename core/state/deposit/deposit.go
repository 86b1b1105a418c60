package deposit

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state/bus"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/tree"
	amino "github.com/tendermint/go-amino"
)

const (
	donationPrefix = byte('d')
	donorsPrefix   = byte('D')
	infoPrefix     = byte('e')
)

var cdc = amino.NewCodec()

// Info is the persisted deposit state
type Info struct {
	Owner  types.Address
	Wallet types.Address
	Paused bool
	Total  []byte
}

type donors struct {
	List []types.Address
}

// RDeposit is the read-only presale deposit. Views stay available while
// receipts are paused.
type RDeposit interface {
	DepositOf(address types.Address) *big.Int
	Donors() []types.Address
	DonorCount() int
	Total() *big.Int
	IsPaused() bool
	Export(state *types.AppState)
}

// Deposit collects presale wei. Receipts are forwarded to the quorum
// wallet immediately, the deposit itself holds nothing.
type Deposit struct {
	info      *Info
	infoDirty bool

	donors      *donors
	donorsDirty bool

	donations map[types.Address]*Model
	dirty     map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewDeposit(stateBus *bus.Bus, db *tree.ImmutableTree) *Deposit {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Deposit{
		bus:       stateBus,
		db:        immutableTree,
		donations: map[types.Address]*Model{},
		dirty:     map[types.Address]struct{}{},
	}
}

func (d *Deposit) immutableTree() *tree.ImmutableTree {
	db := d.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (d *Deposit) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	d.db.Store(immutableTree)
}

// Receive accepts a presale donation and forwards the wei to the wallet
func (d *Deposit) Receive(donor types.Address, value *big.Int) error {
	info := d.getInfo()
	if info.Paused {
		return code.NewPaused("deposit")
	}

	if donor.IsZero() {
		return code.NewZeroAddress()
	}

	if value == nil || value.Sign() != 1 {
		return code.NewInvalidParameter("donation must be positive")
	}

	model := d.getOrNew(donor)
	if model.Donated().Sign() == 0 {
		d.appendDonor(donor)
	}
	model.SetDonated(big.NewInt(0).Add(model.Donated(), value))

	d.lock.Lock()
	info.Total = big.NewInt(0).Add(big.NewInt(0).SetBytes(info.Total), value).Bytes()
	d.infoDirty = true
	d.lock.Unlock()

	d.bus.Funds().AddBalance(info.Wallet, value)
	d.bus.Events().AddEvent(&eventsdb.DonationEvent{
		Address: donor,
		Amount:  value.String(),
	})

	return nil
}

func (d *Deposit) DepositOf(address types.Address) *big.Int {
	model := d.get(address)
	if model == nil {
		return big.NewInt(0)
	}

	return model.Donated()
}

func (d *Deposit) Donors() []types.Address {
	list := d.getDonors()

	d.lock.RLock()
	defer d.lock.RUnlock()

	result := make([]types.Address, len(list.List))
	copy(result, list.List)

	return result
}

func (d *Deposit) DonorCount() int {
	d.getDonors()

	d.lock.RLock()
	defer d.lock.RUnlock()

	return len(d.donors.List)
}

func (d *Deposit) Total() *big.Int {
	return big.NewInt(0).SetBytes(d.getInfo().Total)
}

func (d *Deposit) IsPaused() bool {
	return d.getInfo().Paused
}

func (d *Deposit) Wallet() types.Address {
	return d.getInfo().Wallet
}

func (d *Deposit) Pause(caller types.Address) error {
	return d.setPaused(caller, true)
}

func (d *Deposit) Unpause(caller types.Address) error {
	return d.setPaused(caller, false)
}

func (d *Deposit) setPaused(caller types.Address, paused bool) error {
	info := d.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	d.lock.Lock()
	info.Paused = paused
	d.infoDirty = true
	d.lock.Unlock()

	return nil
}

func (d *Deposit) Import(state types.Deposit) {
	total := big.NewInt(0)
	if state.Total != "" {
		total.SetString(state.Total, 10)
	}

	d.lock.Lock()
	d.info = &Info{
		Owner:  state.Owner,
		Wallet: state.Wallet,
		Paused: state.Paused,
		Total:  total.Bytes(),
	}
	d.infoDirty = true
	d.donors = &donors{}
	d.donorsDirty = true
	d.lock.Unlock()

	for _, donor := range state.Donors {
		value, _ := big.NewInt(0).SetString(donor.Value, 10)
		d.getOrNew(donor.Address).SetDonated(value)
		d.appendDonor(donor.Address)
	}
}

func (d *Deposit) Export(state *types.AppState) {
	info := d.getInfo()
	state.Deposit = types.Deposit{
		Owner:  info.Owner,
		Wallet: info.Wallet,
		Paused: info.Paused,
		Total:  d.Total().String(),
	}

	for _, donor := range d.Donors() {
		state.Deposit.Donors = append(state.Deposit.Donors, types.Balance{
			Address: donor,
			Value:   d.DepositOf(donor).String(),
		})
	}
}

func (d *Deposit) Commit(db tree.MTree) error {
	if d.isInfoDirty() {
		data, err := cdc.MarshalBinaryBare(d.getInfo())
		if err != nil {
			return fmt.Errorf("can't encode deposit info: %v", err)
		}

		db.Set([]byte{infoPrefix}, data)

		d.lock.Lock()
		d.infoDirty = false
		d.lock.Unlock()
	}

	if d.isDonorsDirty() {
		data, err := cdc.MarshalBinaryBare(d.getDonors())
		if err != nil {
			return fmt.Errorf("can't encode donor list: %v", err)
		}

		db.Set([]byte{donorsPrefix}, data)

		d.lock.Lock()
		d.donorsDirty = false
		d.lock.Unlock()
	}

	for _, address := range d.getOrderedDirty() {
		model := d.getFromMap(address)
		path := append([]byte{donationPrefix}, address.Bytes()...)

		d.lock.Lock()
		delete(d.dirty, address)
		d.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(model)
		if err != nil {
			return fmt.Errorf("can't encode object at %s: %v", address.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func (d *Deposit) appendDonor(donor types.Address) {
	list := d.getDonors()

	d.lock.Lock()
	defer d.lock.Unlock()

	for _, a := range list.List {
		if a == donor {
			return
		}
	}

	list.List = append(list.List, donor)
	d.donorsDirty = true
}

func (d *Deposit) getDonors() *donors {
	d.lock.RLock()
	list := d.donors
	d.lock.RUnlock()

	if list != nil {
		return list
	}

	list = &donors{}
	_, enc := d.immutableTree().Get([]byte{donorsPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, list); err != nil {
			panic(fmt.Sprintf("failed to decode donor list: %s", err))
		}
	}

	d.lock.Lock()
	d.donors = list
	d.lock.Unlock()

	return list
}

func (d *Deposit) getInfo() *Info {
	d.lock.RLock()
	info := d.info
	d.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := d.immutableTree().Get([]byte{infoPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode deposit info: %s", err))
		}
	}

	d.lock.Lock()
	d.info = info
	d.lock.Unlock()

	return info
}

func (d *Deposit) isInfoDirty() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.infoDirty
}

func (d *Deposit) isDonorsDirty() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.donorsDirty
}

func (d *Deposit) getOrNew(address types.Address) *Model {
	model := d.get(address)
	if model == nil {
		model = &Model{
			Value:     big.NewInt(0).Bytes(),
			address:   address,
			markDirty: d.markDirty,
		}
		d.setToMap(address, model)
	}

	return model
}

func (d *Deposit) get(address types.Address) *Model {
	if model := d.getFromMap(address); model != nil {
		return model
	}

	path := append([]byte{donationPrefix}, address.Bytes()...)
	_, enc := d.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := new(Model)
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode donation of %s: %s", address.String(), err))
	}

	model.address = address
	model.markDirty = d.markDirty
	d.setToMap(address, model)

	return model
}

func (d *Deposit) getFromMap(address types.Address) *Model {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.donations[address]
}

func (d *Deposit) setToMap(address types.Address, model *Model) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.donations[address] = model
}

func (d *Deposit) markDirty(address types.Address) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.dirty[address] = struct{}{}
}

func (d *Deposit) getOrderedDirty() []types.Address {
	d.lock.Lock()
	keys := make([]types.Address, 0, len(d.dirty))
	for k := range d.dirty {
		keys = append(keys, k)
	}
	d.lock.Unlock()

	sortAddresses(keys)

	return keys
}
