package eventsdb

import (
	"encoding/binary"
	"sync"

	amino "github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"
)

// IEventsDB is the append-only event log, one batch per committed state
// version.
type IEventsDB interface {
	AddEvent(event Event)
	LoadEvents(version uint32) Events
	CommitEvents(version uint32) error
	Close() error
}

var cdc = amino.NewCodec()

func init() {
	registerAminoEvents(cdc)
}

func registerAminoEvents(codec *amino.Codec) {
	codec.RegisterInterface((*Event)(nil), nil)
	codec.RegisterConcrete(&DonationEvent{}, TypeDonationEvent, nil)
	codec.RegisterConcrete(&InvestmentEvent{}, TypeInvestmentEvent, nil)
	codec.RegisterConcrete(&AllocationEvent{}, TypeAllocationEvent, nil)
	codec.RegisterConcrete(&PriceChangeEvent{}, TypePriceChangeEvent, nil)
	codec.RegisterConcrete(&PhaseChangeEvent{}, TypePhaseChangeEvent, nil)
	codec.RegisterConcrete(&TokenReleaseEvent{}, TypeTokenReleaseEvent, nil)
	codec.RegisterConcrete(&WalletSubmissionEvent{}, TypeWalletSubmissionEvent, nil)
	codec.RegisterConcrete(&WalletConfirmationEvent{}, TypeWalletConfirmationEvent, nil)
	codec.RegisterConcrete(&WalletRevocationEvent{}, TypeWalletRevocationEvent, nil)
	codec.RegisterConcrete(&WalletExecutionEvent{}, TypeWalletExecutionEvent, nil)
	codec.RegisterConcrete(&OwnerAddedEvent{}, TypeOwnerAddedEvent, nil)
	codec.RegisterConcrete(&OwnerRemovedEvent{}, TypeOwnerRemovedEvent, nil)
	codec.RegisterConcrete(&VaultCreditEvent{}, TypeVaultCreditEvent, nil)
	codec.RegisterConcrete(&VaultDebitEvent{}, TypeVaultDebitEvent, nil)
	codec.RegisterConcrete(&VaultMoveEvent{}, TypeVaultMoveEvent, nil)
}

type eventsStore struct {
	db      db.DB
	pending Events

	lock sync.Mutex
}

// NewEventsStore creates the event log over the given database
func NewEventsStore(db db.DB) IEventsDB {
	return &eventsStore{
		db: db,
	}
}

func (store *eventsStore) AddEvent(event Event) {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.pending = append(store.pending, event)
}

func (store *eventsStore) LoadEvents(version uint32) Events {
	bytes, err := store.db.Get(versionKey(version))
	if err != nil {
		panic(err)
	}

	if len(bytes) == 0 {
		return Events{}
	}

	var events Events
	if err := cdc.UnmarshalBinaryBare(bytes, &events); err != nil {
		panic(err)
	}

	return events
}

func (store *eventsStore) CommitEvents(version uint32) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if len(store.pending) == 0 {
		return nil
	}

	bytes, err := cdc.MarshalBinaryBare(store.pending)
	if err != nil {
		return err
	}

	store.pending = nil

	return store.db.Set(versionKey(version), bytes)
}

func (store *eventsStore) Close() error {
	return store.db.Close()
}

func versionKey(version uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, version)
	return key
}

// MockEvents is a no-op event log for read-only state views
type MockEvents struct{}

func (e MockEvents) AddEvent(event Event)              {}
func (e MockEvents) LoadEvents(version uint32) Events  { return Events{} }
func (e MockEvents) CommitEvents(version uint32) error { return nil }
func (e MockEvents) Close() error                      { return nil }
