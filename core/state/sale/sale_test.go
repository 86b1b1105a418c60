package sale

import (
	"math/big"
	"testing"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/state/bus"
	"github.com/bitrent/bitrent-ico/core/state/checker"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/tree"
	db "github.com/tendermint/tm-db"
)

var owner = types.Address{1}

func getSale() (*Sale, tree.MTree) {
	mutableTree := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	b := bus.NewBus()
	b.SetChecker(checker.NewChecker(b))
	b.SetEvents(&eventsdb.MockEvents{})

	s := NewSale(b, mutableTree.GetImmutable())
	s.Import(types.Sale{
		Owner:            owner,
		WeiRaised:        "0",
		TokensSold:       "0",
		PresaleTokenPool: "1000",
	})

	return s, mutableTree
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	s, _ := getSale()

	if s.Status() != StatusUnknown {
		t.Fatalf("invalid initial status %s", s.Status())
	}

	s.SetStatus(StatusPresale)
	if s.Status() != StatusPresale {
		t.Fatalf("invalid status %s, expected Presale", s.Status())
	}

	s.SetPresaleFinished()
	if !s.PresaleFinished() {
		t.Fatal("presale finished flag was not set")
	}
}

func TestRaisedAccumulation(t *testing.T) {
	t.Parallel()
	s, _ := getSale()

	s.AddWeiRaised(big.NewInt(100))
	s.AddWeiRaised(big.NewInt(50))
	if s.WeiRaised().Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("invalid wei raised %s, expected 150", s.WeiRaised())
	}

	s.AddTokensSold(big.NewInt(7))
	if s.TokensSold().Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("invalid tokens sold %s, expected 7", s.TokensSold())
	}
}

func TestInvestedTracking(t *testing.T) {
	t.Parallel()
	s, _ := getSale()

	investor := types.Address{5}
	s.AddInvested(investor, big.NewInt(10))
	s.AddInvested(investor, big.NewInt(15))

	if s.InvestedBy(investor).Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("invalid invested %s, expected 25", s.InvestedBy(investor))
	}

	if s.InvestedBy(types.Address{6}).Sign() != 0 {
		t.Fatal("unknown investor has non-zero investment")
	}
}

func TestAllowListsAreOwnerGated(t *testing.T) {
	t.Parallel()
	s, _ := getSale()

	operator, stranger := types.Address{5}, types.Address{6}

	if err := s.AllowAllocation(stranger, operator, true); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := s.AllowAllocation(owner, operator, true); err != nil {
		t.Fatal(err)
	}
	if !s.IsAllocationAllowed(operator) {
		t.Fatal("operator was not allocation-allowed")
	}

	if err := s.AllowBackend(owner, operator, true); err != nil {
		t.Fatal(err)
	}
	if !s.IsBackendAllowed(operator) {
		t.Fatal("operator was not backend-allowed")
	}

	// the owner is always allowed
	if !s.IsAllocationAllowed(owner) || !s.IsBackendAllowed(owner) {
		t.Fatal("owner is not implicitly allowed")
	}

	if err := s.AllowAllocation(owner, operator, false); err != nil {
		t.Fatal(err)
	}
	if s.IsAllocationAllowed(operator) {
		t.Fatal("operator allocation permission was not revoked")
	}
}

func TestSaleCommitPersists(t *testing.T) {
	t.Parallel()
	s, mutableTree := getSale()

	investor := types.Address{5}
	s.SetStatus(StatusIco)
	s.AddWeiRaised(big.NewInt(100))
	s.AddTokensSold(big.NewInt(200))
	s.AddInvested(investor, big.NewInt(100))
	s.SetFinalizeAgent(types.Address{7})

	if err := s.Commit(mutableTree); err != nil {
		t.Fatal(err)
	}
	if _, _, err := mutableTree.SaveVersion(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewSale(s.bus, mutableTree.GetImmutable())
	if reloaded.Status() != StatusIco {
		t.Fatalf("invalid reloaded status %s", reloaded.Status())
	}
	if reloaded.WeiRaised().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid reloaded wei raised %s", reloaded.WeiRaised())
	}
	if reloaded.TokensSold().Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("invalid reloaded tokens sold %s", reloaded.TokensSold())
	}
	if reloaded.InvestedBy(investor).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid reloaded investment %s", reloaded.InvestedBy(investor))
	}
	if reloaded.FinalizeAgent() != (types.Address{7}) {
		t.Fatal("finalize agent was not persisted")
	}
	if reloaded.PresaleTokenPool().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("invalid reloaded pool %s", reloaded.PresaleTokenPool())
	}
}
