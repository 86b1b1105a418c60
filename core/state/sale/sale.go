package sale

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

const (
	investedPrefix = byte('i')
	infoPrefix     = byte('s')
)

var cdc = amino.NewCodec()

// Status is the crowdsale phase
type Status byte

const (
	StatusUnknown Status = iota
	StatusPresale
	StatusIco
	StatusFinalized
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusPresale:
		return "Presale"
	case StatusIco:
		return "Ico"
	case StatusFinalized:
		return "Finalized"
	}

	return fmt.Sprintf("Status(%d)", byte(s))
}

// Info is the persisted sale state
type Info struct {
	Owner             types.Address
	Status            byte
	PresaleFinished   bool
	WeiRaised         []byte
	TokensSold        []byte
	PresaleTokenPool  []byte
	FinalizeAgent     types.Address
	AllocationAllowed []types.Address
	BackendAllowed    []types.Address
}

// RSale is the read-only sale state
type RSale interface {
	Status() Status
	PresaleFinished() bool
	WeiRaised() *big.Int
	TokensSold() *big.Int
	PresaleTokenPool() *big.Int
	FinalizeAgent() types.Address
	Owner() types.Address
	InvestedBy(address types.Address) *big.Int
	IsAllocationAllowed(address types.Address) bool
	IsBackendAllowed(address types.Address) bool
	Export(state *types.AppState)
}

// Sale persists the crowdsale phase machine, raised totals and the two
// operator allow-lists.
type Sale struct {
	info      *Info
	infoDirty bool

	invested map[types.Address]*Model
	dirty    map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewSale(stateBus *bus.Bus, db *tree.ImmutableTree) *Sale {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Sale{
		bus:      stateBus,
		db:       immutableTree,
		invested: map[types.Address]*Model{},
		dirty:    map[types.Address]struct{}{},
	}
}

func (s *Sale) immutableTree() *tree.ImmutableTree {
	db := s.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (s *Sale) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	s.db.Store(immutableTree)
}

func (s *Sale) Status() Status {
	return Status(s.getInfo().Status)
}

func (s *Sale) SetStatus(status Status) {
	info := s.getInfo()

	s.lock.Lock()
	info.Status = byte(status)
	s.infoDirty = true
	s.lock.Unlock()
}

func (s *Sale) PresaleFinished() bool {
	return s.getInfo().PresaleFinished
}

func (s *Sale) SetPresaleFinished() {
	info := s.getInfo()

	s.lock.Lock()
	info.PresaleFinished = true
	s.infoDirty = true
	s.lock.Unlock()
}

func (s *Sale) WeiRaised() *big.Int {
	return big.NewInt(0).SetBytes(s.getInfo().WeiRaised)
}

func (s *Sale) AddWeiRaised(value *big.Int) {
	info := s.getInfo()

	s.lock.Lock()
	info.WeiRaised = big.NewInt(0).Add(big.NewInt(0).SetBytes(info.WeiRaised), value).Bytes()
	s.infoDirty = true
	s.lock.Unlock()
}

func (s *Sale) TokensSold() *big.Int {
	return big.NewInt(0).SetBytes(s.getInfo().TokensSold)
}

func (s *Sale) AddTokensSold(value *big.Int) {
	info := s.getInfo()

	s.lock.Lock()
	info.TokensSold = big.NewInt(0).Add(big.NewInt(0).SetBytes(info.TokensSold), value).Bytes()
	s.infoDirty = true
	s.lock.Unlock()
}

func (s *Sale) PresaleTokenPool() *big.Int {
	return big.NewInt(0).SetBytes(s.getInfo().PresaleTokenPool)
}

func (s *Sale) FinalizeAgent() types.Address {
	return s.getInfo().FinalizeAgent
}

func (s *Sale) SetFinalizeAgent(agent types.Address) {
	info := s.getInfo()

	s.lock.Lock()
	info.FinalizeAgent = agent
	s.infoDirty = true
	s.lock.Unlock()
}

func (s *Sale) Owner() types.Address {
	return s.getInfo().Owner
}

func (s *Sale) InvestedBy(address types.Address) *big.Int {
	model := s.get(address)
	if model == nil {
		return big.NewInt(0)
	}

	return model.Invested()
}

func (s *Sale) AddInvested(address types.Address, value *big.Int) {
	model := s.getOrNew(address)
	model.SetInvested(big.NewInt(0).Add(model.Invested(), value))
}

func (s *Sale) IsAllocationAllowed(address types.Address) bool {
	info := s.getInfo()
	if address == info.Owner {
		return true
	}

	return contains(info.AllocationAllowed, address)
}

func (s *Sale) IsBackendAllowed(address types.Address) bool {
	info := s.getInfo()
	if address == info.Owner {
		return true
	}

	return contains(info.BackendAllowed, address)
}

// AllowAllocation manages the crowdsale allocation allow-list
func (s *Sale) AllowAllocation(caller, address types.Address, allowed bool) error {
	return s.allow(caller, address, allowed, func(info *Info) *[]types.Address {
		return &info.AllocationAllowed
	})
}

// AllowBackend manages the backend gateway allow-list
func (s *Sale) AllowBackend(caller, address types.Address, allowed bool) error {
	return s.allow(caller, address, allowed, func(info *Info) *[]types.Address {
		return &info.BackendAllowed
	})
}

func (s *Sale) allow(caller, address types.Address, allowed bool, list func(info *Info) *[]types.Address) error {
	info := s.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	if address.IsZero() {
		return code.NewZeroAddress()
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	target := list(info)
	if allowed {
		if !contains(*target, address) {
			*target = append(*target, address)
			s.infoDirty = true
		}

		return nil
	}

	for i, a := range *target {
		if a == address {
			*target = append((*target)[:i], (*target)[i+1:]...)
			s.infoDirty = true
			break
		}
	}

	return nil
}

func contains(list []types.Address, address types.Address) bool {
	for _, a := range list {
		if a == address {
			return true
		}
	}

	return false
}

func (s *Sale) Import(state types.Sale) {
	weiRaised := big.NewInt(0)
	if state.WeiRaised != "" {
		weiRaised.SetString(state.WeiRaised, 10)
	}

	tokensSold := big.NewInt(0)
	if state.TokensSold != "" {
		tokensSold.SetString(state.TokensSold, 10)
	}

	pool := big.NewInt(0)
	if state.PresaleTokenPool != "" {
		pool.SetString(state.PresaleTokenPool, 10)
	}

	s.lock.Lock()
	info := &Info{
		Owner:            state.Owner,
		Status:           state.Status,
		PresaleFinished:  state.PresaleFinished,
		WeiRaised:        weiRaised.Bytes(),
		TokensSold:       tokensSold.Bytes(),
		PresaleTokenPool: pool.Bytes(),
		FinalizeAgent:    state.FinalizeAgent,
	}
	info.AllocationAllowed = append(info.AllocationAllowed, state.AllocationAllowed...)
	info.BackendAllowed = append(info.BackendAllowed, state.BackendAllowed...)
	s.info = info
	s.infoDirty = true
	s.lock.Unlock()

	for _, i := range state.Invested {
		value, _ := big.NewInt(0).SetString(i.Value, 10)
		s.getOrNew(i.Address).SetInvested(value)
	}
}

func (s *Sale) Export(state *types.AppState) {
	info := s.getInfo()
	state.Sale = types.Sale{
		Owner:            info.Owner,
		Status:           info.Status,
		PresaleFinished:  info.PresaleFinished,
		WeiRaised:        s.WeiRaised().String(),
		TokensSold:       s.TokensSold().String(),
		PresaleTokenPool: s.PresaleTokenPool().String(),
		FinalizeAgent:    info.FinalizeAgent,
	}
	state.Sale.AllocationAllowed = append(state.Sale.AllocationAllowed, info.AllocationAllowed...)
	state.Sale.BackendAllowed = append(state.Sale.BackendAllowed, info.BackendAllowed...)

	s.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != investedPrefix {
			return false
		}

		address := types.BytesToAddress(key[1:])
		state.Sale.Invested = append(state.Sale.Invested, types.Balance{
			Address: address,
			Value:   s.InvestedBy(address).String(),
		})

		return false
	})

	sort.SliceStable(state.Sale.Invested, func(i, j int) bool {
		return bytes.Compare(state.Sale.Invested[i].Address.Bytes(),
			state.Sale.Invested[j].Address.Bytes()) == -1
	})
}

func (s *Sale) Commit(db tree.MTree) error {
	if s.isInfoDirty() {
		data, err := cdc.MarshalBinaryBare(s.getInfo())
		if err != nil {
			return fmt.Errorf("can't encode sale info: %v", err)
		}

		db.Set([]byte{infoPrefix}, data)

		s.lock.Lock()
		s.infoDirty = false
		s.lock.Unlock()
	}

	for _, address := range s.getOrderedDirty() {
		model := s.getFromMap(address)
		path := append([]byte{investedPrefix}, address.Bytes()...)

		s.lock.Lock()
		delete(s.dirty, address)
		s.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(model)
		if err != nil {
			return fmt.Errorf("can't encode object at %s: %v", address.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func (s *Sale) getInfo() *Info {
	s.lock.RLock()
	info := s.info
	s.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := s.immutableTree().Get([]byte{infoPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode sale info: %s", err))
		}
	}

	s.lock.Lock()
	s.info = info
	s.lock.Unlock()

	return info
}

func (s *Sale) isInfoDirty() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.infoDirty
}

func (s *Sale) getOrNew(address types.Address) *Model {
	model := s.get(address)
	if model == nil {
		model = &Model{
			Value:     big.NewInt(0).Bytes(),
			address:   address,
			markDirty: s.markDirty,
		}
		s.setToMap(address, model)
	}

	return model
}

func (s *Sale) get(address types.Address) *Model {
	if model := s.getFromMap(address); model != nil {
		return model
	}

	path := append([]byte{investedPrefix}, address.Bytes()...)
	_, enc := s.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := new(Model)
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode investment of %s: %s", address.String(), err))
	}

	model.address = address
	model.markDirty = s.markDirty
	s.setToMap(address, model)

	return model
}

func (s *Sale) getFromMap(address types.Address) *Model {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.invested[address]
}

func (s *Sale) setToMap(address types.Address, model *Model) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.invested[address] = model
}

func (s *Sale) markDirty(address types.Address) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.dirty[address] = struct{}{}
}

func (s *Sale) getOrderedDirty() []types.Address {
	s.lock.Lock()
	keys := make([]types.Address, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	s.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})

	return keys
}
