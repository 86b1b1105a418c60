package state

import (
	"math/big"
	"testing"

	"github.com/bitrent/bitrent-ico/core/types"
	db "github.com/tendermint/tm-db"
)

var (
	saleOwner  = types.Address{1}
	tokenOwner = types.Address{2}
	walletAddr = types.Address{0xaa}
	vaultAddr  = types.Address{0xbb}
	backend    = types.Address{7}
)

func defaultAppState() types.AppState {
	return types.AppState{
		Funds: []types.Balance{
			{Address: walletAddr, Value: "1000"},
		},
		Token: types.Token{
			Owner:          tokenOwner,
			TotalSupply:    types.InitialSupply,
			TransferAgents: []types.Address{tokenOwner},
		},
		Pricing: types.Pricing{Owner: saleOwner, OneTokenInWei: "10"},
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
	}
}

func TestImportExportRoundtrip(t *testing.T) {
	t.Parallel()
	memDB := db.NewMemDB()
	st, err := NewState(0, memDB, nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Import(defaultAppState()); err != nil {
		t.Fatal(err)
	}

	if _, _, err := st.Commit(); err != nil {
		t.Fatal(err)
	}

	exported := NewCheckState(st).Export()

	if exported.Token.Owner != tokenOwner || exported.Token.TotalSupply != types.InitialSupply {
		t.Fatal("token state did not survive the roundtrip")
	}

	if exported.Pricing.OneTokenInWei != "10" {
		t.Fatalf("invalid exported price %s", exported.Pricing.OneTokenInWei)
	}

	if exported.Wallet.Address != walletAddr || len(exported.Wallet.Owners) != 1 {
		t.Fatal("wallet state did not survive the roundtrip")
	}

	if exported.Sale.PresaleTokenPool != types.DefaultPresaleTokenPool {
		t.Fatalf("invalid exported pool %s", exported.Sale.PresaleTokenPool)
	}

	if len(exported.Funds) != 1 || exported.Funds[0].Value != "1000" {
		t.Fatalf("funds did not survive the roundtrip: %v", exported.Funds)
	}

	if err := exported.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestImportRejectsUnbackedVault(t *testing.T) {
	t.Parallel()
	st, err := NewState(0, db.NewMemDB(), nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	appState := defaultAppState()
	appState.Vault.Total = "100"
	appState.Vault.Accounts = []types.VaultAccount{
		{ID: types.AccountID{1}, Balance: "100"},
	}

	// no token balance at the vault address backs the ledger
	if err := st.Import(appState); err == nil {
		t.Fatal("expected unbacked vault import to fail")
	}
}

func TestImportAcceptsBackedVault(t *testing.T) {
	t.Parallel()
	st, err := NewState(0, db.NewMemDB(), nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	appState := defaultAppState()
	appState.Token.Balances = []types.Balance{
		{Address: tokenOwner, Value: "900"},
		{Address: vaultAddr, Value: "100"},
	}
	appState.Vault.Total = "100"
	appState.Vault.Accounts = []types.VaultAccount{
		{ID: types.AccountID{1}, Balance: "100"},
	}

	if err := st.Import(appState); err != nil {
		t.Fatal(err)
	}

	if st.Vault.GetBalance(types.AccountID{1}).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid imported vault balance %s", st.Vault.GetBalance(types.AccountID{1}))
	}
}

func TestCommitAdvancesVersions(t *testing.T) {
	t.Parallel()
	memDB := db.NewMemDB()
	st, err := NewState(0, memDB, nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Import(defaultAppState()); err != nil {
		t.Fatal(err)
	}

	hash, version, err := st.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || len(hash) == 0 {
		t.Fatalf("invalid first version %d", version)
	}

	st.Funds.AddBalance(types.Address{5}, big.NewInt(42))

	_, version, err = st.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Fatalf("invalid second version %d", version)
	}

	if st.Height() != 2 {
		t.Fatalf("invalid height %d", st.Height())
	}

	// the first version stays readable
	checkState, err := NewCheckStateAtHeight(1, memDB)
	if err != nil {
		t.Fatal(err)
	}

	if checkState.Funds().GetBalance(types.Address{5}).Sign() != 0 {
		t.Fatal("past version sees a later balance")
	}

	if checkState.Pricing().OneTokenInWei().Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("invalid past price %s", checkState.Pricing().OneTokenInWei())
	}
}

func TestCheckFailsOnUncoveredLiability(t *testing.T) {
	t.Parallel()
	st, err := NewState(0, db.NewMemDB(), nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Import(defaultAppState()); err != nil {
		t.Fatal(err)
	}

	st.Checker.AddLiability(big.NewInt(1))

	if _, _, err := st.Commit(); err == nil {
		t.Fatal("expected commit to fail on uncovered liability")
	}
}
