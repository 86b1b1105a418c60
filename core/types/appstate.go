package types

import (
	"fmt"

	"github.com/bitrent/bitrent-ico/helpers"
)

// AppState is the full platform state snapshot used for genesis import and
// export.
type AppState struct {
	Note    string    `json:"note"`
	Funds   []Balance `json:"funds,omitempty"`
	Token   Token     `json:"token"`
	Pricing Pricing   `json:"pricing"`
	Deposit Deposit   `json:"deposit"`
	Wallet  Wallet    `json:"wallet"`
	Vault   Vault     `json:"vault"`
	Sale    Sale      `json:"sale"`
}

type Balance struct {
	Address Address `json:"address"`
	Value   string  `json:"value"`
}

type Allowance struct {
	Owner   Address `json:"owner"`
	Spender Address `json:"spender"`
	Value   string  `json:"value"`
}

type Token struct {
	Owner          Address     `json:"owner"`
	TotalSupply    string      `json:"total_supply"`
	Released       bool        `json:"released"`
	Paused         bool        `json:"paused"`
	ReleaseAgent   Address     `json:"release_agent,omitempty"`
	TransferAgents []Address   `json:"transfer_agents,omitempty"`
	Balances       []Balance   `json:"balances,omitempty"`
	Allowances     []Allowance `json:"allowances,omitempty"`
}

type Pricing struct {
	Owner         Address   `json:"owner"`
	OneTokenInWei string    `json:"one_token_in_wei"`
	Whitelist     []Address `json:"whitelist,omitempty"`
}

type Deposit struct {
	Owner  Address   `json:"owner"`
	Wallet Address   `json:"wallet"`
	Paused bool      `json:"paused"`
	Total  string    `json:"total"`
	Donors []Balance `json:"donors,omitempty"`
}

type Wallet struct {
	Address          Address             `json:"address"`
	Owners           []WalletOwner       `json:"owners"`
	Required         uint32              `json:"required"`
	Paused           bool                `json:"paused"`
	TransactionCount uint64              `json:"transaction_count"`
	Transactions     []WalletTransaction `json:"transactions,omitempty"`
}

type WalletOwner struct {
	Address Address `json:"address"`
	Admin   bool    `json:"admin"`
}

type WalletTransaction struct {
	ID            uint64    `json:"id"`
	Destination   Address   `json:"destination"`
	Value         string    `json:"value"`
	Data          []byte    `json:"data,omitempty"`
	Executed      bool      `json:"executed"`
	Confirmations []Address `json:"confirmations,omitempty"`
}

type Vault struct {
	Address  Address        `json:"address"`
	Owner    Address        `json:"owner"`
	Total    string         `json:"total"`
	Allowed  []Address      `json:"allowed,omitempty"`
	Accounts []VaultAccount `json:"accounts,omitempty"`
}

type VaultAccount struct {
	ID      AccountID `json:"id"`
	Balance string    `json:"balance"`
}

type Sale struct {
	Owner             Address   `json:"owner"`
	Status            byte      `json:"status"`
	PresaleFinished   bool      `json:"presale_finished"`
	WeiRaised         string    `json:"wei_raised"`
	TokensSold        string    `json:"tokens_sold"`
	PresaleTokenPool  string    `json:"presale_token_pool"`
	FinalizeAgent     Address   `json:"finalize_agent,omitempty"`
	Invested          []Balance `json:"invested,omitempty"`
	AllocationAllowed []Address `json:"allocation_allowed,omitempty"`
	BackendAllowed    []Address `json:"backend_allowed,omitempty"`
}

// Verify performs basic validation of the state
func (s *AppState) Verify() error {
	for _, b := range s.Funds {
		if !helpers.IsValidBigInt(b.Value) {
			return fmt.Errorf("fund balance of %s is not valid BigInt", b.Address)
		}
	}

	if !helpers.IsValidBigInt(s.Token.TotalSupply) {
		return fmt.Errorf("token total supply is not valid BigInt")
	}

	if s.Token.Owner.IsZero() {
		return fmt.Errorf("token owner is not set")
	}

	seenBalances := map[Address]struct{}{}
	for _, b := range s.Token.Balances {
		if !helpers.IsValidBigInt(b.Value) {
			return fmt.Errorf("token balance of %s is not valid BigInt", b.Address)
		}

		if _, ok := seenBalances[b.Address]; ok {
			return fmt.Errorf("duplicated token balance of %s", b.Address)
		}
		seenBalances[b.Address] = struct{}{}
	}

	for _, a := range s.Token.Allowances {
		if !helpers.IsValidBigInt(a.Value) {
			return fmt.Errorf("allowance of %s for %s is not valid BigInt", a.Owner, a.Spender)
		}
	}

	if s.Pricing.OneTokenInWei != "" && !helpers.IsValidBigInt(s.Pricing.OneTokenInWei) {
		return fmt.Errorf("one token in wei is not valid BigInt")
	}

	if !helpers.IsValidBigInt(s.Deposit.Total) {
		return fmt.Errorf("deposit total is not valid BigInt")
	}

	for _, d := range s.Deposit.Donors {
		if !helpers.IsValidBigInt(d.Value) {
			return fmt.Errorf("donation of %s is not valid BigInt", d.Address)
		}
	}

	if len(s.Wallet.Owners) < 1 {
		return fmt.Errorf("there should be at least one wallet owner")
	}

	admins := 0
	seenOwners := map[Address]struct{}{}
	for _, o := range s.Wallet.Owners {
		if o.Address.IsZero() {
			return fmt.Errorf("wallet owner address is zero")
		}

		if _, ok := seenOwners[o.Address]; ok {
			return fmt.Errorf("duplicated wallet owner %s", o.Address)
		}
		seenOwners[o.Address] = struct{}{}

		if o.Admin {
			admins++
		}
	}

	if admins < 1 {
		return fmt.Errorf("there should be at least one wallet admin")
	}

	if s.Wallet.Required < 1 || int(s.Wallet.Required) > len(s.Wallet.Owners) {
		return fmt.Errorf("invalid wallet confirmation threshold %d for %d owners",
			s.Wallet.Required, len(s.Wallet.Owners))
	}

	for _, tx := range s.Wallet.Transactions {
		if !helpers.IsValidBigInt(tx.Value) {
			return fmt.Errorf("wallet transaction %d value is not valid BigInt", tx.ID)
		}

		if tx.ID >= s.Wallet.TransactionCount {
			return fmt.Errorf("wallet transaction %d is beyond transaction count", tx.ID)
		}
	}

	if !helpers.IsValidBigInt(s.Vault.Total) {
		return fmt.Errorf("vault total is not valid BigInt")
	}

	for _, a := range s.Vault.Accounts {
		if !helpers.IsValidBigInt(a.Balance) {
			return fmt.Errorf("vault balance of %s is not valid BigInt", a.ID)
		}
	}

	if s.Sale.Status > 3 {
		return fmt.Errorf("unknown sale status %d", s.Sale.Status)
	}

	if !helpers.IsValidBigInt(s.Sale.WeiRaised) {
		return fmt.Errorf("wei raised is not valid BigInt")
	}

	if !helpers.IsValidBigInt(s.Sale.TokensSold) {
		return fmt.Errorf("tokens sold is not valid BigInt")
	}

	if !helpers.IsValidBigInt(s.Sale.PresaleTokenPool) {
		return fmt.Errorf("presale token pool is not valid BigInt")
	}

	for _, i := range s.Sale.Invested {
		if !helpers.IsValidBigInt(i.Value) {
			return fmt.Errorf("investment of %s is not valid BigInt", i.Address)
		}
	}

	return nil
}
