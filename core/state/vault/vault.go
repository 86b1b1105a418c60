package vault

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
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/tree"
	amino "github.com/tendermint/go-amino"
)

const (
	accountPrefix = byte('v')
	infoPrefix    = byte('V')
)

var cdc = amino.NewCodec()

// Info is the persisted vault descriptor
type Info struct {
	Address types.Address
	Owner   types.Address
	Total   []byte
	Allowed []types.Address
}

func (i *Info) isAllowed(address types.Address) bool {
	if address == i.Owner {
		return true
	}

	for _, a := range i.Allowed {
		if a == address {
			return true
		}
	}

	return false
}

// RVault is the read-only custody ledger
type RVault interface {
	GetBalance(id types.AccountID) *big.Int
	IsRegistered(id types.AccountID) bool
	Total() *big.Int
	Address() types.Address
	Export(state *types.AppState)
}

// Vault is the internal custody ledger keyed by off-chain account id. The
// vault address holds the real token balance backing the ledger.
type Vault struct {
	info      *Info
	infoDirty bool

	accounts map[types.AccountID]*Model
	dirty    map[types.AccountID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewVault(stateBus *bus.Bus, db *tree.ImmutableTree) *Vault {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Vault{
		bus:      stateBus,
		db:       immutableTree,
		accounts: map[types.AccountID]*Model{},
		dirty:    map[types.AccountID]struct{}{},
	}
}

func (v *Vault) immutableTree() *tree.ImmutableTree {
	db := v.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (v *Vault) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	v.db.Store(immutableTree)
}

// ReceiveTokens pulls tokens from the holder's allowance into custody and
// credits the account. First credit registers the account.
func (v *Vault) ReceiveTokens(caller, from types.Address, id types.AccountID, value *big.Int) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if value == nil || value.Sign() != 1 {
		return code.NewInvalidParameter("credit must be positive")
	}

	if err := v.bus.Token().TransferFrom(caller, from, info.Address, value); err != nil {
		return err
	}
	v.bus.Checker().AddCustody(value)

	return v.credit(info, id, value)
}

// AddToAccount credits an account against tokens already held in custody
func (v *Vault) AddToAccount(caller types.Address, id types.AccountID, value *big.Int) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if value == nil || value.Sign() != 1 {
		return code.NewInvalidParameter("credit must be positive")
	}

	return v.credit(info, id, value)
}

// credit requires every ledger liability to stay covered by the real
// custody balance
func (v *Vault) credit(info *Info, id types.AccountID, value *big.Int) error {
	total := big.NewInt(0).SetBytes(info.Total)
	liabilities := big.NewInt(0).Add(total, value)

	custody := v.bus.Token().GetBalance(info.Address)
	if custody.Cmp(liabilities) == -1 {
		return code.NewInvariantViolation(fmt.Sprintf(
			"vault custody %s does not cover ledger %s", custody.String(), liabilities.String()))
	}

	model := v.getOrNew(id)
	model.SetBalance(big.NewInt(0).Add(model.Balance(), value))

	v.lock.Lock()
	info.Total = liabilities.Bytes()
	v.infoDirty = true
	v.lock.Unlock()

	v.bus.Checker().AddLiability(value)
	v.bus.Events().AddEvent(&eventsdb.VaultCreditEvent{
		AccountID: id,
		Amount:    value.String(),
	})

	return nil
}

// RemoveFromAccount debits a registered account without moving tokens, a
// maintenance entry for the vault operator.
func (v *Vault) RemoveFromAccount(caller types.Address, id types.AccountID, value *big.Int) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if err := v.debit(info, id, value); err != nil {
		return err
	}

	v.bus.Events().AddEvent(&eventsdb.VaultDebitEvent{
		AccountID: id,
		Amount:    value.String(),
	})

	return nil
}

// TransferFromAccount debits the account and delivers real tokens to the
// destination address. The ledger moves before the token does.
func (v *Vault) TransferFromAccount(caller types.Address, id types.AccountID, to types.Address, value *big.Int) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if to.IsZero() {
		return code.NewZeroAddress()
	}

	if err := v.debit(info, id, value); err != nil {
		return err
	}

	if err := v.bus.Token().Transfer(info.Address, to, value); err != nil {
		// roll the ledger back, the account keeps its balance
		model := v.getOrNew(id)
		model.SetBalance(big.NewInt(0).Add(model.Balance(), value))

		v.lock.Lock()
		info.Total = big.NewInt(0).Add(big.NewInt(0).SetBytes(info.Total), value).Bytes()
		v.infoDirty = true
		v.lock.Unlock()

		v.bus.Checker().AddLiability(value)

		return err
	}

	v.bus.Checker().AddCustody(big.NewInt(0).Neg(value))
	v.bus.Events().AddEvent(&eventsdb.VaultMoveEvent{
		AccountID: id,
		To:        to,
		Amount:    value.String(),
	})

	return nil
}

// TransferAllFromAccount drains the account, delivering its whole
// balance as real tokens to the destination address
func (v *Vault) TransferAllFromAccount(caller types.Address, id types.AccountID, to types.Address) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if to.IsZero() {
		return code.NewZeroAddress()
	}

	model := v.get(id)
	if model == nil {
		return code.NewUnknownAccount(id.String())
	}

	balance := model.Balance()
	if balance.Sign() == 0 {
		return nil
	}

	return v.TransferFromAccount(caller, id, to, balance)
}

// MoveToAccount moves balance between accounts inside the ledger
func (v *Vault) MoveToAccount(caller types.Address, from, to types.AccountID, value *big.Int) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	model := v.get(from)
	if model == nil {
		return code.NewUnknownAccount(from.String())
	}

	if value == nil || value.Sign() != 1 {
		return code.NewInvalidParameter("amount must be positive")
	}

	balance := model.Balance()
	if balance.Cmp(value) == -1 {
		return code.NewInsufficientBalance(from.String(), balance.String(), value.String())
	}

	model.SetBalance(big.NewInt(0).Sub(balance, value))

	target := v.getOrNew(to)
	target.SetBalance(big.NewInt(0).Add(target.Balance(), value))

	return nil
}

// MoveAllToAccount drains one account into another. The ACL is checked
// before the account lookup so unauthorized callers learn nothing about
// which ids exist.
func (v *Vault) MoveAllToAccount(caller types.Address, from, to types.AccountID) error {
	info := v.getInfo()
	if !info.isAllowed(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	model := v.get(from)
	if model == nil {
		return code.NewUnknownAccount(from.String())
	}

	balance := model.Balance()
	if balance.Sign() == 0 {
		return nil
	}

	return v.MoveToAccount(caller, from, to, balance)
}

func (v *Vault) debit(info *Info, id types.AccountID, value *big.Int) error {
	model := v.get(id)
	if model == nil {
		return code.NewUnknownAccount(id.String())
	}

	if value == nil || value.Sign() != 1 {
		return code.NewInvalidParameter("amount must be positive")
	}

	balance := model.Balance()
	if balance.Cmp(value) == -1 {
		return code.NewInsufficientBalance(id.String(), balance.String(), value.String())
	}

	model.SetBalance(big.NewInt(0).Sub(balance, value))

	v.lock.Lock()
	info.Total = big.NewInt(0).Sub(big.NewInt(0).SetBytes(info.Total), value).Bytes()
	v.infoDirty = true
	v.lock.Unlock()

	v.bus.Checker().AddLiability(big.NewInt(0).Neg(value))

	return nil
}

// AllowAddress includes or excludes an operator address
func (v *Vault) AllowAddress(caller, address types.Address, allowed bool) error {
	info := v.getInfo()
	if caller != info.Owner {
		return code.NewNotAuthorized(caller.String())
	}

	if address.IsZero() {
		return code.NewZeroAddress()
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if allowed {
		for _, a := range info.Allowed {
			if a == address {
				return nil
			}
		}

		info.Allowed = append(info.Allowed, address)
		v.infoDirty = true

		return nil
	}

	for i, a := range info.Allowed {
		if a == address {
			info.Allowed = append(info.Allowed[:i], info.Allowed[i+1:]...)
			v.infoDirty = true
			break
		}
	}

	return nil
}

func (v *Vault) GetBalance(id types.AccountID) *big.Int {
	model := v.get(id)
	if model == nil {
		return big.NewInt(0)
	}

	return model.Balance()
}

func (v *Vault) IsRegistered(id types.AccountID) bool {
	return v.get(id) != nil
}

func (v *Vault) Total() *big.Int {
	return big.NewInt(0).SetBytes(v.getInfo().Total)
}

func (v *Vault) Address() types.Address {
	return v.getInfo().Address
}

func (v *Vault) Owner() types.Address {
	return v.getInfo().Owner
}

func (v *Vault) IsAllowed(address types.Address) bool {
	return v.getInfo().isAllowed(address)
}

func (v *Vault) Import(state types.Vault) {
	total := big.NewInt(0)
	if state.Total != "" {
		total.SetString(state.Total, 10)
	}

	v.lock.Lock()
	info := &Info{
		Address: state.Address,
		Owner:   state.Owner,
		Total:   total.Bytes(),
	}
	info.Allowed = append(info.Allowed, state.Allowed...)
	v.info = info
	v.infoDirty = true
	v.lock.Unlock()

	for _, a := range state.Accounts {
		value, _ := big.NewInt(0).SetString(a.Balance, 10)
		v.getOrNew(a.ID).SetBalance(value)
	}
}

func (v *Vault) Export(state *types.AppState) {
	info := v.getInfo()
	state.Vault = types.Vault{
		Address: info.Address,
		Owner:   info.Owner,
		Total:   v.Total().String(),
	}
	state.Vault.Allowed = append(state.Vault.Allowed, info.Allowed...)

	v.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != accountPrefix {
			return false
		}

		id := types.BytesToAccountID(key[1:])
		state.Vault.Accounts = append(state.Vault.Accounts, types.VaultAccount{
			ID:      id,
			Balance: v.GetBalance(id).String(),
		})

		return false
	})

	sort.SliceStable(state.Vault.Accounts, func(i, j int) bool {
		return bytes.Compare(state.Vault.Accounts[i].ID.Bytes(),
			state.Vault.Accounts[j].ID.Bytes()) == -1
	})
}

func (v *Vault) Commit(db tree.MTree) error {
	if v.isInfoDirty() {
		data, err := cdc.MarshalBinaryBare(v.getInfo())
		if err != nil {
			return fmt.Errorf("can't encode vault info: %v", err)
		}

		db.Set([]byte{infoPrefix}, data)

		v.lock.Lock()
		v.infoDirty = false
		v.lock.Unlock()
	}

	// zero balances stay persisted, presence marks registration
	for _, id := range v.getOrderedDirty() {
		model := v.getFromMap(id)
		path := append([]byte{accountPrefix}, id.Bytes()...)

		v.lock.Lock()
		delete(v.dirty, id)
		v.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(model)
		if err != nil {
			return fmt.Errorf("can't encode account %s: %v", id.String(), err)
		}

		db.Set(path, data)
	}

	return nil
}

func (v *Vault) getInfo() *Info {
	v.lock.RLock()
	info := v.info
	v.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := v.immutableTree().Get([]byte{infoPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode vault info: %s", err))
		}
	}

	v.lock.Lock()
	v.info = info
	v.lock.Unlock()

	return info
}

func (v *Vault) isInfoDirty() bool {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return v.infoDirty
}

func (v *Vault) getOrNew(id types.AccountID) *Model {
	model := v.get(id)
	if model == nil {
		model = &Model{
			Value:     big.NewInt(0).Bytes(),
			id:        id,
			markDirty: v.markDirty,
		}
		v.setToMap(id, model)
		v.markDirty(id)
	}

	return model
}

func (v *Vault) get(id types.AccountID) *Model {
	if model := v.getFromMap(id); model != nil {
		return model
	}

	path := append([]byte{accountPrefix}, id.Bytes()...)
	_, enc := v.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := new(Model)
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode account %s: %s", id.String(), err))
	}

	model.id = id
	model.markDirty = v.markDirty
	v.setToMap(id, model)

	return model
}

func (v *Vault) getFromMap(id types.AccountID) *Model {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return v.accounts[id]
}

func (v *Vault) setToMap(id types.AccountID, model *Model) {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.accounts[id] = model
}

func (v *Vault) markDirty(id types.AccountID) {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.dirty[id] = struct{}{}
}

func (v *Vault) getOrderedDirty() []types.AccountID {
	v.lock.Lock()
	keys := make([]types.AccountID, 0, len(v.dirty))
	for k := range v.dirty {
		keys = append(keys, k)
	}
	v.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})

	return keys
}
