package funds

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state/bus"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/tree"
	amino "github.com/tendermint/go-amino"
)

const mainPrefix = byte('f')

var cdc = amino.NewCodec()

// RFunds is the read-only wei ledger
type RFunds interface {
	GetBalance(address types.Address) *big.Int
	Export(state *types.AppState)
}

// Funds is the wei ledger of the platform
type Funds struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewFunds(stateBus *bus.Bus, db *tree.ImmutableTree) *Funds {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	funds := &Funds{
		bus:   stateBus,
		db:    immutableTree,
		list:  map[types.Address]*Model{},
		dirty: map[types.Address]struct{}{},
	}
	funds.bus.SetFunds(NewBus(funds))

	return funds
}

func (f *Funds) immutableTree() *tree.ImmutableTree {
	db := f.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (f *Funds) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	f.db.Store(immutableTree)
}

func (f *Funds) GetBalance(address types.Address) *big.Int {
	model := f.get(address)
	if model == nil {
		return big.NewInt(0)
	}

	return model.Balance()
}

func (f *Funds) AddBalance(address types.Address, value *big.Int) {
	if value.Sign() == 0 {
		return
	}

	model := f.getOrNew(address)
	model.SetBalance(big.NewInt(0).Add(model.Balance(), value))
}

func (f *Funds) SubBalance(address types.Address, value *big.Int) error {
	balance := f.GetBalance(address)
	if balance.Cmp(value) == -1 {
		return code.NewInsufficientBalance(address.String(), balance.String(), value.String())
	}

	model := f.getOrNew(address)
	model.SetBalance(big.NewInt(0).Sub(balance, value))

	return nil
}

// Transfer moves wei between addresses
func (f *Funds) Transfer(from, to types.Address, value *big.Int) error {
	if err := f.SubBalance(from, value); err != nil {
		return err
	}
	f.AddBalance(to, value)

	return nil
}

func (f *Funds) Export(state *types.AppState) {
	f.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != mainPrefix {
			return false
		}

		address := types.BytesToAddress(key[1:])
		state.Funds = append(state.Funds, types.Balance{
			Address: address,
			Value:   f.GetBalance(address).String(),
		})

		return false
	})

	sort.SliceStable(state.Funds, func(i, j int) bool {
		return bytes.Compare(state.Funds[i].Address.Bytes(), state.Funds[j].Address.Bytes()) == -1
	})
}

func (f *Funds) Commit(db tree.MTree) error {
	dirty := f.getOrderedDirty()
	for _, address := range dirty {
		model := f.getFromMap(address)
		path := append([]byte{mainPrefix}, address.Bytes()...)

		f.lock.Lock()
		delete(f.dirty, address)
		f.lock.Unlock()

		if model.Balance().Sign() == 0 {
			db.Remove(path)

			f.lock.Lock()
			delete(f.list, address)
			f.lock.Unlock()

			continue
		}

		data, err := cdc.MarshalBinaryBare(model)
		if err != nil {
			return fmt.Errorf("can't encode object at %s: %v", address.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func (f *Funds) getOrNew(address types.Address) *Model {
	model := f.get(address)
	if model == nil {
		model = &Model{
			Value:     big.NewInt(0).Bytes(),
			address:   address,
			markDirty: f.markDirty,
		}
		f.setToMap(address, model)
	}

	return model
}

func (f *Funds) get(address types.Address) *Model {
	if model := f.getFromMap(address); model != nil {
		return model
	}

	path := append([]byte{mainPrefix}, address.Bytes()...)
	_, enc := f.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := new(Model)
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode balance of %s: %s", address.String(), err))
	}

	model.address = address
	model.markDirty = f.markDirty
	f.setToMap(address, model)

	return model
}

func (f *Funds) getFromMap(address types.Address) *Model {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.list[address]
}

func (f *Funds) setToMap(address types.Address, model *Model) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.list[address] = model
}

func (f *Funds) markDirty(address types.Address) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.dirty[address] = struct{}{}
}

func (f *Funds) getOrderedDirty() []types.Address {
	f.lock.Lock()
	keys := make([]types.Address, 0, len(f.dirty))
	for k := range f.dirty {
		keys = append(keys, k)
	}
	f.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})

	return keys
}
