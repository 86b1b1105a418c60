package pricing

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

func getPricing() *Pricing {
	mutableTree := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	b := bus.NewBus()
	b.SetChecker(checker.NewChecker(b))
	b.SetEvents(&eventsdb.MockEvents{})

	return NewPricing(b, mutableTree.GetImmutable())
}

func TestCalculatePriceDefaultPriceFails(t *testing.T) {
	t.Parallel()
	p := getPricing()

	_, err := p.CalculatePrice(big.NewInt(1000), 2)
	if code.CodeOf(err) != code.DivisionByZero {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestCalculatePrice(t *testing.T) {
	t.Parallel()
	p := getPricing()

	owner := types.Address{1}
	p.Import(types.Pricing{Owner: owner, OneTokenInWei: "10"})

	amount, err := p.CalculatePrice(big.NewInt(1000), 2)
	if err != nil {
		t.Fatal(err)
	}

	if amount.Cmp(big.NewInt(10000)) != 0 {
		t.Fatalf("invalid amount %s, expected 10000", amount)
	}
}

func TestSetOneTokenInWeiAuthorization(t *testing.T) {
	t.Parallel()
	p := getPricing()

	owner, agent, stranger := types.Address{1}, types.Address{2}, types.Address{3}
	p.Import(types.Pricing{Owner: owner, OneTokenInWei: "0"})

	if err := p.SetOneTokenInWei(stranger, big.NewInt(5)); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := p.SetOneTokenInWei(owner, big.NewInt(5)); err != nil {
		t.Fatal(err)
	}

	if p.OneTokenInWei().Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("invalid price %s, expected 5", p.OneTokenInWei())
	}

	if err := p.AllowAddress(owner, agent, true); err != nil {
		t.Fatal(err)
	}

	if err := p.SetOneTokenInWei(agent, big.NewInt(7)); err != nil {
		t.Fatal(err)
	}

	if p.OneTokenInWei().Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("invalid price %s, expected 7", p.OneTokenInWei())
	}
}

func TestAllowAddressRevocationIsImmediate(t *testing.T) {
	t.Parallel()
	p := getPricing()

	owner, agent := types.Address{1}, types.Address{2}
	p.Import(types.Pricing{Owner: owner, OneTokenInWei: "1", Whitelist: []types.Address{agent}})

	if err := p.SetOneTokenInWei(agent, big.NewInt(2)); err != nil {
		t.Fatal(err)
	}

	if err := p.AllowAddress(owner, agent, false); err != nil {
		t.Fatal(err)
	}

	if err := p.SetOneTokenInWei(agent, big.NewInt(3)); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized after revocation, got %v", err)
	}

	if p.OneTokenInWei().Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("invalid price %s, expected 2", p.OneTokenInWei())
	}
}

func TestAllowAddressOwnerOnly(t *testing.T) {
	t.Parallel()
	p := getPricing()

	owner, stranger := types.Address{1}, types.Address{3}
	p.Import(types.Pricing{Owner: owner, OneTokenInWei: "1"})

	if err := p.AllowAddress(stranger, stranger, true); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}
}

func TestSetOneTokenInWeiRejectsNegative(t *testing.T) {
	t.Parallel()
	p := getPricing()

	owner := types.Address{1}
	p.Import(types.Pricing{Owner: owner, OneTokenInWei: "1"})

	if err := p.SetOneTokenInWei(owner, big.NewInt(-1)); code.CodeOf(err) != code.InvalidParameter {
		t.Fatalf("expected invalid parameter for negative price, got %v", err)
	}
}
