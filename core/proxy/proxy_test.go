package proxy

import (
	"math/big"
	"testing"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/crowdsale"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/helpers"
	db "github.com/tendermint/tm-db"
)

var (
	saleOwner  = types.Address{1}
	tokenOwner = types.Address{2}
	walletAddr = types.Address{0xaa}
	vaultAddr  = types.Address{0xbb}
	backend    = types.Address{7}
	stranger   = types.Address{9}
)

func getProxy(t *testing.T) (*Proxy, *state.State) {
	t.Helper()
	st, err := state.NewState(0, db.NewMemDB(), nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	err = st.Import(types.AppState{
		Token: types.Token{
			Owner:          tokenOwner,
			TotalSupply:    types.InitialSupply,
			TransferAgents: []types.Address{tokenOwner, vaultAddr},
			Allowances: []types.Allowance{
				{Owner: tokenOwner, Spender: backend, Value: types.InitialSupply},
			},
		},
		Pricing: types.Pricing{Owner: saleOwner, OneTokenInWei: "0"},
		Deposit: types.Deposit{Owner: saleOwner, Wallet: walletAddr, Total: "0"},
		Wallet: types.Wallet{
			Address:  walletAddr,
			Owners:   []types.WalletOwner{{Address: saleOwner, Admin: true}},
			Required: 1,
		},
		Vault: types.Vault{
			Address: vaultAddr,
			Owner:   saleOwner,
			Total:   "0",
			Allowed: []types.Address{backend},
		},
		Sale: types.Sale{
			Owner:            saleOwner,
			WeiRaised:        "0",
			TokensSold:       "0",
			PresaleTokenPool: types.DefaultPresaleTokenPool,
			BackendAllowed:   []types.Address{backend},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	cs := crowdsale.NewCrowdsale(st)

	return NewProxy(st, cs), st
}

func TestAddTokens(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	id := types.AccountID{1}
	if err := p.AddTokens(stranger, id, big.NewInt(100)); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := p.AddTokens(backend, id, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(id).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid vault balance %s, expected 100", st.Vault.GetBalance(id))
	}

	if st.Token.GetBalance(vaultAddr).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid custody balance %s, expected 100", st.Token.GetBalance(vaultAddr))
	}
}

func TestMoveTokens(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	id := types.AccountID{1}
	if err := p.AddTokens(backend, id, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	to := types.Address{5}
	if err := p.MoveTokens(stranger, id, to, big.NewInt(40)); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := p.MoveTokens(backend, id, to, big.NewInt(40)); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(id).Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("invalid vault balance %s, expected 60", st.Vault.GetBalance(id))
	}

	if st.Token.GetBalance(to).Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("invalid token balance %s, expected 40", st.Token.GetBalance(to))
	}
}

func TestMoveBetweenAccounts(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	from, to := types.AccountID{1}, types.AccountID{2}
	if err := p.AddTokens(backend, from, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	if err := p.MoveBetweenAccounts(backend, from, to, big.NewInt(30)); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(from).Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("invalid source balance %s, expected 70", st.Vault.GetBalance(from))
	}
	if st.Vault.GetBalance(to).Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("invalid target balance %s, expected 30", st.Vault.GetBalance(to))
	}

	if err := p.MoveAllBetweenAccounts(backend, from, to); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(from).Sign() != 0 {
		t.Fatalf("source was not drained: %s", st.Vault.GetBalance(from))
	}
	if st.Vault.GetBalance(to).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid target balance %s, expected 100", st.Vault.GetBalance(to))
	}
}

func TestAllowAddress(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	next := types.Address{8}
	if err := p.AllowAddress(stranger, next, true); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := p.AllowAddress(saleOwner, next, true); err != nil {
		t.Fatal(err)
	}

	if !st.Sale.IsBackendAllowed(next) {
		t.Fatal("address was not backend-allowed")
	}
}

func TestProxyMoveAllTokens(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	id := types.AccountID{1}
	if err := p.AddTokens(backend, id, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	to := types.Address{5}
	if err := p.MoveAllTokens(stranger, id, to); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := p.MoveAllTokens(backend, id, to); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(id).Sign() != 0 {
		t.Fatalf("account was not drained: %s", st.Vault.GetBalance(id))
	}

	if st.Token.GetBalance(to).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid token balance %s, expected 100", st.Token.GetBalance(to))
	}
}

func TestProxyAllocateDelegates(t *testing.T) {
	t.Parallel()
	p, st := getProxy(t)

	// allocation uses the sale operator allowance, grant it first
	supply := helpers.StringToBigInt(types.InitialSupply)
	if err := st.Token.Approve(tokenOwner, saleOwner, supply); err != nil {
		t.Fatal(err)
	}

	if err := st.Pricing.SetOneTokenInWei(saleOwner, big.NewInt(5000000000)); err != nil {
		t.Fatal(err)
	}

	to := types.Address{5}
	id := types.AccountID{2}
	if err := p.Allocate(saleOwner, to, id, helpers.EtherToWei(big.NewInt(1))); err != nil {
		t.Fatal(err)
	}

	// the wei equivalent is converted through the pricing strategy
	want := helpers.StringToBigInt(types.DefaultPresaleTokenPool)
	if st.Token.GetBalance(to).Cmp(want) != 0 {
		t.Fatalf("invalid balance %s after allocation, expected %s", st.Token.GetBalance(to), want)
	}
}
