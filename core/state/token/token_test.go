package token

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

func getToken() (*Token, tree.MTree) {
	mutableTree := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	b := bus.NewBus()
	b.SetChecker(checker.NewChecker(b))
	b.SetEvents(&eventsdb.MockEvents{})

	return NewToken(b, mutableTree.GetImmutable()), mutableTree
}

func TestCreateCreditsOwner(t *testing.T) {
	t.Parallel()
	tk, _ := getToken()

	owner := types.Address{1}
	tk.Create(owner, big.NewInt(1000))

	if tk.TotalSupply().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("invalid total supply %s, expected 1000", tk.TotalSupply())
	}

	if tk.GetBalance(owner).Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("invalid owner balance %s, expected 1000", tk.GetBalance(owner))
	}
}

func TestTransferBlockedBeforeRelease(t *testing.T) {
	t.Parallel()
	tk, _ := getToken()

	owner, to := types.Address{1}, types.Address{2}
	tk.Create(owner, big.NewInt(1000))

	if err := tk.Transfer(owner, to, big.NewInt(10)); code.CodeOf(err) != code.TransferBlocked {
		t.Fatalf("expected transfer blocked, got %v", err)
	}

	if err := tk.SetTransferAgent(owner, owner, true); err != nil {
		t.Fatal(err)
	}

	if err := tk.Transfer(owner, to, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}

	if tk.GetBalance(to).Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("invalid balance %s, expected 10", tk.GetBalance(to))
	}

	// non-agent holders stay locked
	if err := tk.Transfer(to, owner, big.NewInt(5)); code.CodeOf(err) != code.TransferBlocked {
		t.Fatalf("expected transfer blocked, got %v", err)
	}
}

func TestReleaseByAgentOnly(t *testing.T) {
	t.Parallel()
	tk, _ := getToken()

	owner, agent, holder := types.Address{1}, types.Address{2}, types.Address{3}
	tk.Create(owner, big.NewInt(1000))

	if err := tk.Release(owner); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := tk.SetReleaseAgent(agent, agent); code.CodeOf(err) != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	if err := tk.SetReleaseAgent(owner, agent); err != nil {
		t.Fatal(err)
	}

	if err := tk.Release(agent); err != nil {
		t.Fatal(err)
	}

	if !tk.IsReleased() {
		t.Fatal("token is not released")
	}

	if err := tk.Release(agent); code.CodeOf(err) != code.AlreadyReleased {
		t.Fatalf("expected already released, got %v", err)
	}

	// anyone can transfer after release
	if err := tk.SetTransferAgent(owner, owner, true); err != nil {
		t.Fatal(err)
	}
	if err := tk.Transfer(owner, holder, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := tk.Transfer(holder, owner, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
}

func TestPauseBlocksTransfers(t *testing.T) {
	t.Parallel()
	tk, _ := getToken()

	owner, to := types.Address{1}, types.Address{2}
	tk.Create(owner, big.NewInt(1000))
	if err := tk.SetTransferAgent(owner, owner, true); err != nil {
		t.Fatal(err)
	}

	if err := tk.Pause(owner); err != nil {
		t.Fatal(err)
	}

	if err := tk.Transfer(owner, to, big.NewInt(10)); code.CodeOf(err) != code.Paused {
		t.Fatalf("expected paused, got %v", err)
	}

	if err := tk.Unpause(owner); err != nil {
		t.Fatal(err)
	}

	if err := tk.Transfer(owner, to, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	t.Parallel()
	tk, _ := getToken()

	owner, spender, to := types.Address{1}, types.Address{2}, types.Address{3}
	tk.Create(owner, big.NewInt(1000))
	if err := tk.SetTransferAgent(owner, owner, true); err != nil {
		t.Fatal(err)
	}

	if err := tk.TransferFrom(spender, owner, to, big.NewInt(10)); code.CodeOf(err) != code.InsufficientAllowance {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}

	if err := tk.Approve(owner, spender, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	if err := tk.TransferFrom(spender, owner, to, big.NewInt(60)); err != nil {
		t.Fatal(err)
	}

	if tk.GetAllowance(owner, spender).Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("invalid allowance %s, expected 40", tk.GetAllowance(owner, spender))
	}

	if err := tk.TransferFrom(spender, owner, to, big.NewInt(60)); code.CodeOf(err) != code.InsufficientAllowance {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}

	if tk.GetBalance(to).Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("invalid balance %s, expected 60", tk.GetBalance(to))
	}
}

func TestTokenCommitPersistsBalances(t *testing.T) {
	t.Parallel()
	tk, mutableTree := getToken()

	owner, to := types.Address{1}, types.Address{2}
	tk.Create(owner, big.NewInt(1000))
	if err := tk.SetTransferAgent(owner, owner, true); err != nil {
		t.Fatal(err)
	}
	if err := tk.Transfer(owner, to, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	if err := tk.Commit(mutableTree); err != nil {
		t.Fatal(err)
	}
	if _, _, err := mutableTree.SaveVersion(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewToken(tk.bus, mutableTree.GetImmutable())
	if reloaded.GetBalance(to).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid reloaded balance %s, expected 100", reloaded.GetBalance(to))
	}
	if reloaded.TotalSupply().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("invalid reloaded total supply %s", reloaded.TotalSupply())
	}
	if !reloaded.IsTransferAgent(owner) {
		t.Fatal("transfer agent was not persisted")
	}
}
