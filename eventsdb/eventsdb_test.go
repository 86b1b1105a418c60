package eventsdb

import (
	"testing"

	"github.com/bitrent/bitrent-ico/core/types"
	db "github.com/tendermint/tm-db"
)

func TestStoreCommitAndLoad(t *testing.T) {
	t.Parallel()
	store := NewEventsStore(db.NewMemDB())

	store.AddEvent(&DonationEvent{
		Address: types.Address{1},
		Amount:  "1000000000000000000",
	})
	store.AddEvent(&InvestmentEvent{
		Address:     types.Address{2},
		WeiAmount:   "1000000000000000000",
		TokenAmount: "200000000000000000000000000",
	})

	if err := store.CommitEvents(1); err != nil {
		t.Fatal(err)
	}

	store.AddEvent(&PhaseChangeEvent{From: "Unknown", To: "Presale"})
	if err := store.CommitEvents(2); err != nil {
		t.Fatal(err)
	}

	events := store.LoadEvents(1)
	if len(events) != 2 {
		t.Fatalf("invalid event count %d, expected 2", len(events))
	}

	donation, ok := events[0].(*DonationEvent)
	if !ok {
		t.Fatalf("invalid event type %s", events[0].Type())
	}
	if donation.Address != (types.Address{1}) || donation.Amount != "1000000000000000000" {
		t.Fatal("donation event fields were not restored")
	}

	investment, ok := events[1].(*InvestmentEvent)
	if !ok {
		t.Fatalf("invalid event type %s", events[1].Type())
	}
	if investment.TokenAmount != "200000000000000000000000000" {
		t.Fatal("investment event fields were not restored")
	}

	second := store.LoadEvents(2)
	if len(second) != 1 {
		t.Fatalf("invalid event count %d for version 2", len(second))
	}
	if second[0].Type() != TypePhaseChangeEvent {
		t.Fatalf("invalid event type %s", second[0].Type())
	}
}

func TestLoadMissingVersion(t *testing.T) {
	t.Parallel()
	store := NewEventsStore(db.NewMemDB())

	if events := store.LoadEvents(42); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestEmptyCommitStoresNothing(t *testing.T) {
	t.Parallel()
	store := NewEventsStore(db.NewMemDB())

	if err := store.CommitEvents(1); err != nil {
		t.Fatal(err)
	}

	if events := store.LoadEvents(1); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestPendingClearedAfterCommit(t *testing.T) {
	t.Parallel()
	store := NewEventsStore(db.NewMemDB())

	store.AddEvent(&TokenReleaseEvent{Agent: types.Address{1}})
	if err := store.CommitEvents(1); err != nil {
		t.Fatal(err)
	}

	if err := store.CommitEvents(2); err != nil {
		t.Fatal(err)
	}

	if events := store.LoadEvents(2); len(events) != 0 {
		t.Fatalf("pending batch leaked into version 2: %d events", len(events))
	}
}
