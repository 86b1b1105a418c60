package token

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
	balancePrefix   = byte('t')
	allowancePrefix = byte('A')
	infoPrefix      = byte('T')
)

var cdc = amino.NewCodec()

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

// RToken is the read-only token ledger
type RToken interface {
	GetBalance(address types.Address) *big.Int
	GetAllowance(owner, spender types.Address) *big.Int
	TotalSupply() *big.Int
	Owner() types.Address
	IsReleased() bool
	IsPaused() bool
	IsTransferAgent(address types.Address) bool
	Export(state *types.AppState)
}

// Token is the base fungible asset: balances, allowances, a one-time
// release switch and a transfer-agent set gating transfers before release.
type Token struct {
	info      *Info
	infoDirty bool

	balances   map[types.Address]*Model
	allowances map[allowanceKey]*Allowance
	dirty      map[types.Address]struct{}
	dirtyAllow map[allowanceKey]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewToken(stateBus *bus.Bus, db *tree.ImmutableTree) *Token {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	token := &Token{
		bus:        stateBus,
		db:         immutableTree,
		balances:   map[types.Address]*Model{},
		allowances: map[allowanceKey]*Allowance{},
		dirty:      map[types.Address]struct{}{},
		dirtyAllow: map[allowanceKey]struct{}{},
	}
	token.bus.SetToken(NewBus(token))

	return token
}

func (t *Token) immutableTree() *tree.ImmutableTree {
	db := t.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (t *Token) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	t.db.Store(immutableTree)
}

func (t *Token) GetBalance(address types.Address) *big.Int {
	model := t.get(address)
	if model == nil {
		return big.NewInt(0)
	}

	return model.Balance()
}

func (t *Token) GetAllowance(owner, spender types.Address) *big.Int {
	allowance := t.getAllowance(owner, spender)
	if allowance == nil {
		return big.NewInt(0)
	}

	return allowance.Amount()
}

func (t *Token) TotalSupply() *big.Int {
	return big.NewInt(0).SetBytes(t.getInfo().TotalSupply)
}

func (t *Token) Owner() types.Address {
	return t.getInfo().Owner
}

func (t *Token) IsReleased() bool {
	return t.getInfo().Released
}

func (t *Token) IsPaused() bool {
	return t.getInfo().Paused
}

func (t *Token) IsTransferAgent(address types.Address) bool {
	return t.getInfo().isTransferAgent(address)
}

// Transfer moves tokens. Until the one-time release the sender must be a
// transfer agent.
func (t *Token) Transfer(from, to types.Address, value *big.Int) error {
	if to.IsZero() {
		return code.NewZeroAddress()
	}

	info := t.getInfo()
	if info.Paused {
		return code.NewPaused("token")
	}

	if !info.Released && !info.isTransferAgent(from) {
		return code.NewTransferBlocked(from.String())
	}

	balance := t.GetBalance(from)
	if balance.Cmp(value) == -1 {
		return code.NewInsufficientBalance(from.String(), balance.String(), value.String())
	}

	t.getOrNew(from).SetBalance(big.NewInt(0).Sub(balance, value))
	t.getOrNew(to).SetBalance(big.NewInt(0).Add(t.GetBalance(to), value))

	return nil
}

// TransferFrom spends the owner's allowance granted to the spender
func (t *Token) TransferFrom(spender, from, to types.Address, value *big.Int) error {
	allowed := t.GetAllowance(from, spender)
	if allowed.Cmp(value) == -1 {
		return code.NewInsufficientAllowance(from.String(), spender.String(),
			allowed.String(), value.String())
	}

	if err := t.Transfer(from, to, value); err != nil {
		return err
	}

	t.getOrNewAllowance(from, spender).SetAmount(big.NewInt(0).Sub(allowed, value))

	return nil
}

// Approve sets the spender allowance of the caller
func (t *Token) Approve(owner, spender types.Address, value *big.Int) error {
	if spender.IsZero() {
		return code.NewZeroAddress()
	}

	if t.getInfo().Paused {
		return code.NewPaused("token")
	}

	t.getOrNewAllowance(owner, spender).SetAmount(value)

	return nil
}

// SetReleaseAgent designates the one address allowed to flip the release
// switch
func (t *Token) SetReleaseAgent(caller, agent types.Address) error {
	info := t.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	if info.Released {
		return code.NewAlreadyReleased()
	}

	if agent.IsZero() {
		return code.NewZeroAddress()
	}

	t.lock.Lock()
	info.ReleaseAgent = agent
	t.infoDirty = true
	t.lock.Unlock()

	return nil
}

// SetTransferAgent includes or excludes an address from the pre-release
// transfer allow-list
func (t *Token) SetTransferAgent(caller, agent types.Address, allowed bool) error {
	info := t.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	if agent.IsZero() {
		return code.NewZeroAddress()
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if allowed {
		if !info.isTransferAgent(agent) {
			info.TransferAgents = append(info.TransferAgents, agent)
			t.infoDirty = true
		}

		return nil
	}

	for i, a := range info.TransferAgents {
		if a == agent {
			info.TransferAgents = append(info.TransferAgents[:i], info.TransferAgents[i+1:]...)
			t.infoDirty = true
			break
		}
	}

	return nil
}

// Release makes the token freely transferable, once, by the release agent
// only
func (t *Token) Release(caller types.Address) error {
	info := t.getInfo()
	if info.Released {
		return code.NewAlreadyReleased()
	}

	if caller != info.ReleaseAgent || caller.IsZero() {
		return code.NewNotAuthorized(caller.String())
	}

	t.lock.Lock()
	info.Released = true
	t.infoDirty = true
	t.lock.Unlock()

	return nil
}

func (t *Token) Pause(caller types.Address) error {
	return t.setPaused(caller, true)
}

func (t *Token) Unpause(caller types.Address) error {
	return t.setPaused(caller, false)
}

func (t *Token) setPaused(caller types.Address, paused bool) error {
	info := t.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	t.lock.Lock()
	info.Paused = paused
	t.infoDirty = true
	t.lock.Unlock()

	return nil
}

// Create initializes the asset at genesis, crediting the full supply to the
// owner unless balances are imported explicitly.
func (t *Token) Create(owner types.Address, totalSupply *big.Int) {
	t.lock.Lock()
	t.info = &Info{
		Owner:       owner,
		TotalSupply: totalSupply.Bytes(),
	}
	t.infoDirty = true
	t.lock.Unlock()

	t.getOrNew(owner).SetBalance(totalSupply)
}

func (t *Token) Import(state types.Token) {
	total := big.NewInt(0)
	if state.TotalSupply != "" {
		total.SetString(state.TotalSupply, 10)
	}

	t.lock.Lock()
	info := &Info{
		Owner:        state.Owner,
		TotalSupply:  total.Bytes(),
		Released:     state.Released,
		Paused:       state.Paused,
		ReleaseAgent: state.ReleaseAgent,
	}
	info.TransferAgents = append(info.TransferAgents, state.TransferAgents...)
	t.info = info
	t.infoDirty = true
	t.lock.Unlock()

	if len(state.Balances) == 0 {
		t.getOrNew(state.Owner).SetBalance(total)
	}

	for _, b := range state.Balances {
		value, _ := big.NewInt(0).SetString(b.Value, 10)
		t.getOrNew(b.Address).SetBalance(value)
	}

	for _, a := range state.Allowances {
		value, _ := big.NewInt(0).SetString(a.Value, 10)
		t.getOrNewAllowance(a.Owner, a.Spender).SetAmount(value)
	}
}

func (t *Token) Export(state *types.AppState) {
	info := t.getInfo()
	state.Token = types.Token{
		Owner:        info.Owner,
		TotalSupply:  t.TotalSupply().String(),
		Released:     info.Released,
		Paused:       info.Paused,
		ReleaseAgent: info.ReleaseAgent,
	}
	state.Token.TransferAgents = append(state.Token.TransferAgents, info.TransferAgents...)

	t.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 {
			return false
		}

		switch key[0] {
		case balancePrefix:
			address := types.BytesToAddress(key[1:])
			state.Token.Balances = append(state.Token.Balances, types.Balance{
				Address: address,
				Value:   t.GetBalance(address).String(),
			})
		case allowancePrefix:
			owner := types.BytesToAddress(key[1 : 1+types.AddressLength])
			spender := types.BytesToAddress(key[1+types.AddressLength:])
			state.Token.Allowances = append(state.Token.Allowances, types.Allowance{
				Owner:   owner,
				Spender: spender,
				Value:   t.GetAllowance(owner, spender).String(),
			})
		}

		return false
	})

	sort.SliceStable(state.Token.Balances, func(i, j int) bool {
		return bytes.Compare(state.Token.Balances[i].Address.Bytes(),
			state.Token.Balances[j].Address.Bytes()) == -1
	})
}

func (t *Token) Commit(db tree.MTree) error {
	if t.isInfoDirty() {
		info := t.getInfo()

		data, err := cdc.MarshalBinaryBare(info)
		if err != nil {
			return fmt.Errorf("can't encode token info: %v", err)
		}

		db.Set([]byte{infoPrefix}, data)

		t.lock.Lock()
		t.infoDirty = false
		t.lock.Unlock()
	}

	for _, address := range t.getOrderedDirty() {
		model := t.getFromMap(address)
		path := append([]byte{balancePrefix}, address.Bytes()...)

		t.lock.Lock()
		delete(t.dirty, address)
		t.lock.Unlock()

		if model.Balance().Sign() == 0 {
			db.Remove(path)

			t.lock.Lock()
			delete(t.balances, address)
			t.lock.Unlock()

			continue
		}

		data, err := cdc.MarshalBinaryBare(model)
		if err != nil {
			return fmt.Errorf("can't encode object at %s: %v", address.String(), err)
		}

		db.Set(path, data)
	}

	for _, key := range t.getOrderedDirtyAllowances() {
		allowance := t.getAllowanceFromMap(key)
		path := allowancePath(key)

		t.lock.Lock()
		delete(t.dirtyAllow, key)
		t.lock.Unlock()

		if allowance.Amount().Sign() == 0 {
			db.Remove(path)

			t.lock.Lock()
			delete(t.allowances, key)
			t.lock.Unlock()

			continue
		}

		data, err := cdc.MarshalBinaryBare(allowance)
		if err != nil {
			return fmt.Errorf("can't encode allowance of %s: %v", key.owner.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func allowancePath(key allowanceKey) []byte {
	path := append([]byte{allowancePrefix}, key.owner.Bytes()...)
	return append(path, key.spender.Bytes()...)
}

func (t *Token) getInfo() *Info {
	t.lock.RLock()
	info := t.info
	t.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := t.immutableTree().Get([]byte{infoPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode token info: %s", err))
		}
	}

	t.lock.Lock()
	t.info = info
	t.lock.Unlock()

	return info
}

func (t *Token) isInfoDirty() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.infoDirty
}

func (t *Token) getOrNew(address types.Address) *Model {
	model := t.get(address)
	if model == nil {
		model = &Model{
			Value:     big.NewInt(0).Bytes(),
			address:   address,
			markDirty: t.markDirty,
		}
		t.setToMap(address, model)
	}

	return model
}

func (t *Token) get(address types.Address) *Model {
	if model := t.getFromMap(address); model != nil {
		return model
	}

	path := append([]byte{balancePrefix}, address.Bytes()...)
	_, enc := t.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := new(Model)
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode token balance of %s: %s", address.String(), err))
	}

	model.address = address
	model.markDirty = t.markDirty
	t.setToMap(address, model)

	return model
}

func (t *Token) getOrNewAllowance(owner, spender types.Address) *Allowance {
	allowance := t.getAllowance(owner, spender)
	if allowance == nil {
		key := allowanceKey{owner: owner, spender: spender}
		allowance = &Allowance{
			Value:     big.NewInt(0).Bytes(),
			key:       key,
			markDirty: t.markDirtyAllowance,
		}
		t.setAllowanceToMap(key, allowance)
	}

	return allowance
}

func (t *Token) getAllowance(owner, spender types.Address) *Allowance {
	key := allowanceKey{owner: owner, spender: spender}
	if allowance := t.getAllowanceFromMap(key); allowance != nil {
		return allowance
	}

	_, enc := t.immutableTree().Get(allowancePath(key))
	if len(enc) == 0 {
		return nil
	}

	allowance := new(Allowance)
	if err := cdc.UnmarshalBinaryBare(enc, allowance); err != nil {
		panic(fmt.Sprintf("failed to decode allowance of %s: %s", owner.String(), err))
	}

	allowance.key = key
	allowance.markDirty = t.markDirtyAllowance
	t.setAllowanceToMap(key, allowance)

	return allowance
}

func (t *Token) getFromMap(address types.Address) *Model {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.balances[address]
}

func (t *Token) setToMap(address types.Address, model *Model) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.balances[address] = model
}

func (t *Token) getAllowanceFromMap(key allowanceKey) *Allowance {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.allowances[key]
}

func (t *Token) setAllowanceToMap(key allowanceKey, allowance *Allowance) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.allowances[key] = allowance
}

func (t *Token) markDirty(address types.Address) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dirty[address] = struct{}{}
}

func (t *Token) markDirtyAllowance(key allowanceKey) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dirtyAllow[key] = struct{}{}
}

func (t *Token) getOrderedDirty() []types.Address {
	t.lock.Lock()
	keys := make([]types.Address, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	t.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})

	return keys
}

func (t *Token) getOrderedDirtyAllowances() []allowanceKey {
	t.lock.Lock()
	keys := make([]allowanceKey, 0, len(t.dirtyAllow))
	for k := range t.dirtyAllow {
		keys = append(keys, k)
	}
	t.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(allowancePath(keys[i]), allowancePath(keys[j])) == -1
	})

	return keys
}
