package wallet

import (
	"encoding/binary"
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
	txPrefix   = byte('w')
	infoPrefix = byte('W')
)

var cdc = amino.NewCodec()

// CallHandler executes an opaque transaction payload against another
// component when a wallet proposal reaches quorum.
type CallHandler func(destination types.Address, data []byte) error

// RWallet is the read-only quorum wallet
type RWallet interface {
	GetTransaction(id uint64) *Transaction
	TransactionCount() uint64
	Owners() []Owner
	Required() uint32
	IsOwner(address types.Address) bool
	IsAdmin(address types.Address) bool
	IsPaused() bool
	Address() types.Address
	Export(state *types.AppState)
}

// Wallet is the k-of-m quorum wallet holding raised wei. Submission
// auto-confirms the submitter and a confirmation reaching the threshold
// executes the proposal.
type Wallet struct {
	info      *Info
	infoDirty bool

	txs   map[uint64]*Transaction
	dirty map[uint64]struct{}

	callHandler CallHandler

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewWallet(stateBus *bus.Bus, db *tree.ImmutableTree) *Wallet {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Wallet{
		bus:   stateBus,
		db:    immutableTree,
		txs:   map[uint64]*Transaction{},
		dirty: map[uint64]struct{}{},
	}
}

func (w *Wallet) immutableTree() *tree.ImmutableTree {
	db := w.db.Load()
	if db == nil {
		return nil
	}
	return db.(*tree.ImmutableTree)
}

func (w *Wallet) SetImmutableTree(immutableTree *tree.ImmutableTree) {
	w.db.Store(immutableTree)
}

// SetCallHandler registers the dispatcher for opaque payloads. Proposals
// carrying data fail to execute until one is registered.
func (w *Wallet) SetCallHandler(handler CallHandler) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.callHandler = handler
}

// SubmitTransaction registers a proposal and confirms it for the
// submitter. With a threshold of one this executes immediately.
func (w *Wallet) SubmitTransaction(caller, destination types.Address, value *big.Int, data []byte) (uint64, error) {
	info := w.getInfo()
	if !info.isOwner(caller) {
		return 0, code.NewNotAuthorized(caller.String())
	}

	if info.Paused {
		return 0, code.NewPaused("wallet")
	}

	if destination.IsZero() {
		return 0, code.NewZeroAddress()
	}

	w.lock.Lock()
	id := info.TransactionCount
	info.TransactionCount++
	w.infoDirty = true

	tx := &Transaction{
		ID:          id,
		Destination: destination,
		Value:       value.Bytes(),
		Data:        data,
		markDirty:   w.markDirty,
	}
	w.txs[id] = tx
	w.dirty[id] = struct{}{}
	w.lock.Unlock()

	w.bus.Events().AddEvent(&eventsdb.WalletSubmissionEvent{
		TransactionID: id,
		Submitter:     caller,
		Destination:   destination,
		Value:         value.String(),
	})

	if err := w.ConfirmTransaction(caller, id); err != nil {
		return id, err
	}

	return id, nil
}

// ConfirmTransaction adds the caller's confirmation and executes the
// proposal once the threshold is reached.
func (w *Wallet) ConfirmTransaction(caller types.Address, id uint64) error {
	info := w.getInfo()
	if !info.isOwner(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	tx := w.GetTransaction(id)
	if tx == nil {
		return code.NewNotFound(fmt.Sprintf("transaction %d", id))
	}

	if tx.Executed {
		return code.NewAlreadyExecuted(id)
	}

	if tx.IsConfirmedBy(caller) {
		return code.NewAlreadyConfirmed(id)
	}

	tx.confirm(caller)
	w.bus.Events().AddEvent(&eventsdb.WalletConfirmationEvent{
		TransactionID: id,
		Owner:         caller,
	})

	if tx.ConfirmationCount() >= info.Required {
		if err := w.execute(tx); err != nil {
			return code.NewExecutionFailed(id, err)
		}
	}

	return nil
}

// RevokeConfirmation withdraws a confirmation from a pending proposal
func (w *Wallet) RevokeConfirmation(caller types.Address, id uint64) error {
	info := w.getInfo()
	if !info.isOwner(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	tx := w.GetTransaction(id)
	if tx == nil {
		return code.NewNotFound(fmt.Sprintf("transaction %d", id))
	}

	if tx.Executed {
		return code.NewAlreadyExecuted(id)
	}

	if !tx.IsConfirmedBy(caller) {
		return code.NewNotConfirmed(id)
	}

	tx.revoke(caller)
	w.bus.Events().AddEvent(&eventsdb.WalletRevocationEvent{
		TransactionID: id,
		Owner:         caller,
	})

	return nil
}

// ExecuteTransaction retries execution of an already confirmed proposal
func (w *Wallet) ExecuteTransaction(caller types.Address, id uint64) error {
	info := w.getInfo()
	if !info.isOwner(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	tx := w.GetTransaction(id)
	if tx == nil {
		return code.NewNotFound(fmt.Sprintf("transaction %d", id))
	}

	if tx.Executed {
		return code.NewAlreadyExecuted(id)
	}

	if tx.ConfirmationCount() < info.Required {
		return code.NewInsufficientConfirmations(id, tx.ConfirmationCount(), info.Required)
	}

	if err := w.execute(tx); err != nil {
		return code.NewExecutionFailed(id, err)
	}

	return nil
}

// execute dispatches the proposal. Any dispatch error leaves the
// transaction unexecuted and keeps its confirmations; callers wrap it
// so the recorded submission can still be persisted.
func (w *Wallet) execute(tx *Transaction) error {
	info := w.getInfo()
	value := tx.Amount()

	if value.Sign() == 1 {
		balance := w.bus.Funds().GetBalance(info.Address)
		if balance.Cmp(value) == -1 {
			return code.NewInsufficientBalance(info.Address.String(), balance.String(), value.String())
		}
	}

	if len(tx.Data) != 0 {
		w.lock.RLock()
		handler := w.callHandler
		w.lock.RUnlock()

		if handler == nil {
			return code.NewInvalidParameter("no call handler registered")
		}

		if err := handler(tx.Destination, tx.Data); err != nil {
			return err
		}
	}

	if value.Sign() == 1 {
		if err := w.bus.Funds().SubBalance(info.Address, value); err != nil {
			return err
		}
		w.bus.Funds().AddBalance(tx.Destination, value)
	}

	tx.markExecuted()
	w.bus.Events().AddEvent(&eventsdb.WalletExecutionEvent{
		TransactionID: tx.ID,
	})

	return nil
}

// AddOwner adds a plain owner. Only construction-time owners are admins.
func (w *Wallet) AddOwner(caller, address types.Address) error {
	info := w.getInfo()
	if !info.isAdmin(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if address.IsZero() {
		return code.NewZeroAddress()
	}

	if info.isOwner(address) {
		return code.NewOwnerExists(address.String())
	}

	w.lock.Lock()
	info.Owners = append(info.Owners, Owner{Address: address})
	w.infoDirty = true
	w.lock.Unlock()

	w.bus.Events().AddEvent(&eventsdb.OwnerAddedEvent{Address: address})

	return nil
}

// RemoveOwner removes an owner. An admin can be removed by another admin
// as long as at least one admin remains.
func (w *Wallet) RemoveOwner(caller, address types.Address) error {
	info := w.getInfo()
	if !info.isAdmin(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	n := info.ownerIndex(address)
	if n == -1 {
		return code.NewOwnerNotFound(address.String())
	}

	if info.Owners[n].Admin {
		if caller == address {
			return code.NewNotAuthorized(caller.String())
		}

		if info.adminCount() <= 1 {
			return code.NewInvariantViolation("cannot remove the last admin")
		}
	}

	w.lock.Lock()
	info.Owners = append(info.Owners[:n], info.Owners[n+1:]...)
	if info.Required > uint32(len(info.Owners)) {
		info.Required = uint32(len(info.Owners))
	}
	w.infoDirty = true
	w.lock.Unlock()

	w.bus.Events().AddEvent(&eventsdb.OwnerRemovedEvent{Address: address})

	return nil
}

// ReplaceOwner swaps an owner address keeping its role
func (w *Wallet) ReplaceOwner(caller, oldAddress, newAddress types.Address) error {
	info := w.getInfo()
	if !info.isAdmin(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if newAddress.IsZero() {
		return code.NewZeroAddress()
	}

	n := info.ownerIndex(oldAddress)
	if n == -1 {
		return code.NewOwnerNotFound(oldAddress.String())
	}

	if info.isOwner(newAddress) {
		return code.NewOwnerExists(newAddress.String())
	}

	w.lock.Lock()
	info.Owners[n].Address = newAddress
	w.infoDirty = true
	w.lock.Unlock()

	w.bus.Events().AddEvent(&eventsdb.OwnerRemovedEvent{Address: oldAddress})
	w.bus.Events().AddEvent(&eventsdb.OwnerAddedEvent{Address: newAddress, Admin: info.Owners[n].Admin})

	return nil
}

// ChangeRequirement updates the confirmation threshold
func (w *Wallet) ChangeRequirement(caller types.Address, required uint32) error {
	info := w.getInfo()
	if !info.isAdmin(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	if required < 1 || required > uint32(len(info.Owners)) {
		return code.NewInvalidRequirement(required, len(info.Owners))
	}

	w.lock.Lock()
	info.Required = required
	w.infoDirty = true
	w.lock.Unlock()

	return nil
}

// Pause blocks new submissions. Confirmations and executions of pending
// proposals stay available.
func (w *Wallet) Pause(caller types.Address) error {
	return w.setPaused(caller, true)
}

func (w *Wallet) Unpause(caller types.Address) error {
	return w.setPaused(caller, false)
}

func (w *Wallet) setPaused(caller types.Address, paused bool) error {
	info := w.getInfo()
	if !info.isAdmin(caller) {
		return code.NewNotAuthorized(caller.String())
	}

	w.lock.Lock()
	info.Paused = paused
	w.infoDirty = true
	w.lock.Unlock()

	return nil
}

func (w *Wallet) GetTransaction(id uint64) *Transaction {
	return w.get(id)
}

func (w *Wallet) TransactionCount() uint64 {
	return w.getInfo().TransactionCount
}

func (w *Wallet) Owners() []Owner {
	info := w.getInfo()

	w.lock.RLock()
	defer w.lock.RUnlock()

	owners := make([]Owner, len(info.Owners))
	copy(owners, info.Owners)

	return owners
}

func (w *Wallet) Required() uint32 {
	return w.getInfo().Required
}

func (w *Wallet) IsOwner(address types.Address) bool {
	return w.getInfo().isOwner(address)
}

func (w *Wallet) IsAdmin(address types.Address) bool {
	return w.getInfo().isAdmin(address)
}

func (w *Wallet) IsPaused() bool {
	return w.getInfo().Paused
}

func (w *Wallet) Address() types.Address {
	return w.getInfo().Address
}

func (w *Wallet) Import(state types.Wallet) {
	w.lock.Lock()
	info := &Info{
		Address:          state.Address,
		Required:         state.Required,
		Paused:           state.Paused,
		TransactionCount: state.TransactionCount,
	}
	for _, o := range state.Owners {
		info.Owners = append(info.Owners, Owner{Address: o.Address, Admin: o.Admin})
	}
	w.info = info
	w.infoDirty = true
	w.lock.Unlock()

	for _, tx := range state.Transactions {
		value, _ := big.NewInt(0).SetString(tx.Value, 10)
		model := &Transaction{
			ID:          tx.ID,
			Destination: tx.Destination,
			Value:       value.Bytes(),
			Data:        tx.Data,
			Executed:    tx.Executed,
			markDirty:   w.markDirty,
		}
		model.Confirmations = append(model.Confirmations, tx.Confirmations...)

		w.lock.Lock()
		w.txs[tx.ID] = model
		w.dirty[tx.ID] = struct{}{}
		w.lock.Unlock()
	}
}

func (w *Wallet) Export(state *types.AppState) {
	info := w.getInfo()
	state.Wallet = types.Wallet{
		Address:          info.Address,
		Required:         info.Required,
		Paused:           info.Paused,
		TransactionCount: info.TransactionCount,
	}
	for _, o := range info.Owners {
		state.Wallet.Owners = append(state.Wallet.Owners, types.WalletOwner{
			Address: o.Address,
			Admin:   o.Admin,
		})
	}

	for id := uint64(0); id < info.TransactionCount; id++ {
		tx := w.get(id)
		if tx == nil {
			continue
		}

		exported := types.WalletTransaction{
			ID:          tx.ID,
			Destination: tx.Destination,
			Value:       tx.Amount().String(),
			Data:        tx.Data,
			Executed:    tx.Executed,
		}
		exported.Confirmations = append(exported.Confirmations, tx.Confirmations...)
		state.Wallet.Transactions = append(state.Wallet.Transactions, exported)
	}
}

func (w *Wallet) Commit(db tree.MTree) error {
	if w.isInfoDirty() {
		data, err := cdc.MarshalBinaryBare(w.getInfo())
		if err != nil {
			return fmt.Errorf("can't encode wallet info: %v", err)
		}

		db.Set([]byte{infoPrefix}, data)

		w.lock.Lock()
		w.infoDirty = false
		w.lock.Unlock()
	}

	for _, id := range w.getOrderedDirty() {
		tx := w.getFromMap(id)

		w.lock.Lock()
		delete(w.dirty, id)
		w.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(tx)
		if err != nil {
			return fmt.Errorf("can't encode transaction %d: %v", id, err)
		}

		db.Set(txPath(id), data)
	}

	return nil
}

func txPath(id uint64) []byte {
	path := make([]byte, 9)
	path[0] = txPrefix
	binary.BigEndian.PutUint64(path[1:], id)
	return path
}

func (w *Wallet) getInfo() *Info {
	w.lock.RLock()
	info := w.info
	w.lock.RUnlock()

	if info != nil {
		return info
	}

	info = &Info{}
	_, enc := w.immutableTree().Get([]byte{infoPrefix})
	if len(enc) != 0 {
		if err := cdc.UnmarshalBinaryBare(enc, info); err != nil {
			panic(fmt.Sprintf("failed to decode wallet info: %s", err))
		}
	}

	w.lock.Lock()
	w.info = info
	w.lock.Unlock()

	return info
}

func (w *Wallet) isInfoDirty() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.infoDirty
}

func (w *Wallet) get(id uint64) *Transaction {
	if tx := w.getFromMap(id); tx != nil {
		return tx
	}

	_, enc := w.immutableTree().Get(txPath(id))
	if len(enc) == 0 {
		return nil
	}

	tx := new(Transaction)
	if err := cdc.UnmarshalBinaryBare(enc, tx); err != nil {
		panic(fmt.Sprintf("failed to decode transaction %d: %s", id, err))
	}

	tx.markDirty = w.markDirty
	w.setToMap(id, tx)

	return tx
}

func (w *Wallet) getFromMap(id uint64) *Transaction {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.txs[id]
}

func (w *Wallet) setToMap(id uint64, tx *Transaction) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.txs[id] = tx
}

func (w *Wallet) markDirty(id uint64) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.dirty[id] = struct{}{}
}

func (w *Wallet) getOrderedDirty() []uint64 {
	w.lock.Lock()
	keys := make([]uint64, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	w.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}
