package state

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/state/bus"
	"github.com/bitrent/bitrent-ico/core/state/checker"
	"github.com/bitrent/bitrent-ico/core/state/deposit"
	"github.com/bitrent/bitrent-ico/core/state/funds"
	"github.com/bitrent/bitrent-ico/core/state/pricing"
	"github.com/bitrent/bitrent-ico/core/state/sale"
	"github.com/bitrent/bitrent-ico/core/state/token"
	"github.com/bitrent/bitrent-ico/core/state/vault"
	"github.com/bitrent/bitrent-ico/core/state/wallet"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/helpers"
	"github.com/bitrent/bitrent-ico/tree"
	dbm "github.com/tendermint/tm-db"
)

// CheckState is a read-only view over the state
type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) Funds() funds.RFunds       { return cs.state.Funds }
func (cs *CheckState) Token() token.RToken       { return cs.state.Token }
func (cs *CheckState) Pricing() pricing.RPricing { return cs.state.Pricing }
func (cs *CheckState) Deposit() deposit.RDeposit { return cs.state.Deposit }
func (cs *CheckState) Wallet() wallet.RWallet    { return cs.state.Wallet }
func (cs *CheckState) Vault() vault.RVault       { return cs.state.Vault }
func (cs *CheckState) Sale() sale.RSale          { return cs.state.Sale }

func (cs *CheckState) Export() types.AppState {
	appState := new(types.AppState)
	cs.state.Funds.Export(appState)
	cs.state.Token.Export(appState)
	cs.state.Pricing.Export(appState)
	cs.state.Deposit.Export(appState)
	cs.state.Wallet.Export(appState)
	cs.state.Vault.Export(appState)
	cs.state.Sale.Export(appState)

	return *appState
}

// State aggregates all platform ledgers over one merkle tree
type State struct {
	Funds   *funds.Funds
	Token   *token.Token
	Pricing *pricing.Pricing
	Deposit *deposit.Deposit
	Wallet  *wallet.Wallet
	Vault   *vault.Vault
	Sale    *sale.Sale
	Checker *checker.Checker

	db     dbm.DB
	events eventsdb.IEventsDB
	tree   tree.MTree
	bus    *bus.Bus

	lock sync.RWMutex
}

func NewState(height uint64, db dbm.DB, events eventsdb.IEventsDB, cacheSize int) (*State, error) {
	iavlTree := tree.NewMutableTree(height, db, cacheSize)

	state, err := newStateForTree(iavlTree, events, db)
	if err != nil {
		return nil, err
	}

	state.Checker.Reset()

	return state, nil
}

// NewCheckStateAtHeight opens a read-only view at a past version
func NewCheckStateAtHeight(height uint64, db dbm.DB) (*CheckState, error) {
	iavlTree := tree.NewMutableTree(0, db, 1024)
	if _, err := iavlTree.LazyLoadVersion(int64(height)); err != nil {
		return nil, err
	}

	state, err := newStateForTree(iavlTree, nil, nil)
	if err != nil {
		return nil, err
	}

	return NewCheckState(state), nil
}

func newStateForTree(iavlTree tree.MTree, events eventsdb.IEventsDB, db dbm.DB) (*State, error) {
	if events == nil {
		events = &eventsdb.MockEvents{}
	}

	stateBus := bus.NewBus()
	stateBus.SetEvents(events)

	stateChecker := checker.NewChecker(stateBus)

	immutable := iavlTree.GetImmutable()

	stateFunds := funds.NewFunds(stateBus, immutable)
	stateToken := token.NewToken(stateBus, immutable)
	statePricing := pricing.NewPricing(stateBus, immutable)
	stateDeposit := deposit.NewDeposit(stateBus, immutable)
	stateWallet := wallet.NewWallet(stateBus, immutable)
	stateVault := vault.NewVault(stateBus, immutable)
	stateSale := sale.NewSale(stateBus, immutable)

	state := &State{
		Funds:   stateFunds,
		Token:   stateToken,
		Pricing: statePricing,
		Deposit: stateDeposit,
		Wallet:  stateWallet,
		Vault:   stateVault,
		Sale:    stateSale,
		Checker: stateChecker,

		db:     db,
		events: events,
		tree:   iavlTree,
		bus:    stateBus,
	}

	return state, nil
}

func (s *State) Bus() *bus.Bus {
	return s.bus
}

func (s *State) Events() eventsdb.IEventsDB {
	return s.events
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Height() uint64 {
	return uint64(s.tree.Version())
}

func (s *State) Lock() {
	s.lock.Lock()
}

func (s *State) Unlock() {
	s.lock.Unlock()
}

func (s *State) RLock() {
	s.lock.RLock()
}

func (s *State) RUnlock() {
	s.lock.RUnlock()
}

// Check verifies the custody invariant accumulated since the last commit
func (s *State) Check() error {
	return s.Checker.Check()
}

// Commit writes all dirty models to the tree and saves a version. Events
// accumulated for the version are flushed to the event log.
func (s *State) Commit() ([]byte, int64, error) {
	s.tree.GlobalLock()
	defer s.tree.GlobalUnlock()

	if err := s.Check(); err != nil {
		return nil, 0, err
	}

	if err := s.Funds.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Token.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Pricing.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Deposit.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Wallet.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Vault.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	if err := s.Sale.Commit(s.tree); err != nil {
		return nil, 0, err
	}

	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return hash, version, err
	}

	immutable := s.tree.GetImmutable()
	s.Funds.SetImmutableTree(immutable)
	s.Token.SetImmutableTree(immutable)
	s.Pricing.SetImmutableTree(immutable)
	s.Deposit.SetImmutableTree(immutable)
	s.Wallet.SetImmutableTree(immutable)
	s.Vault.SetImmutableTree(immutable)
	s.Sale.SetImmutableTree(immutable)

	s.Checker.Reset()

	if err := s.events.CommitEvents(uint32(version)); err != nil {
		return hash, version, err
	}

	return hash, version, nil
}

// Import loads a full snapshot into an empty state
func (s *State) Import(appState types.AppState) error {
	if err := appState.Verify(); err != nil {
		return err
	}

	for _, balance := range appState.Funds {
		s.Funds.AddBalance(balance.Address, helpers.StringToBigInt(balance.Value))
	}

	s.Token.Import(appState.Token)
	s.Pricing.Import(appState.Pricing)
	s.Deposit.Import(appState.Deposit)
	s.Wallet.Import(appState.Wallet)
	s.Vault.Import(appState.Vault)
	s.Sale.Import(appState.Sale)

	// imported custody needs no backing proof
	s.Checker.Reset()

	vaultTotal := s.Vault.Total()
	custody := s.Token.GetBalance(s.Vault.Address())
	if custody.Cmp(vaultTotal) == -1 {
		return newImportBackingError(custody, vaultTotal)
	}

	return nil
}

func newImportBackingError(custody, total *big.Int) error {
	return &importBackingError{custody: custody, total: total}
}

type importBackingError struct {
	custody *big.Int
	total   *big.Int
}

func (e *importBackingError) Error() string {
	return "imported vault ledger " + e.total.String() +
		" is not covered by custody balance " + e.custody.String()
}
