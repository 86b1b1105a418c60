package eventsdb

import (
	"github.com/bitrent/bitrent-ico/core/types"
)

// Event type names
const (
	TypeDonationEvent           = "bitrent/DonationEvent"
	TypeInvestmentEvent         = "bitrent/InvestmentEvent"
	TypeAllocationEvent         = "bitrent/AllocationEvent"
	TypePriceChangeEvent        = "bitrent/PriceChangeEvent"
	TypePhaseChangeEvent        = "bitrent/PhaseChangeEvent"
	TypeTokenReleaseEvent       = "bitrent/TokenReleaseEvent"
	TypeWalletSubmissionEvent   = "bitrent/WalletSubmissionEvent"
	TypeWalletConfirmationEvent = "bitrent/WalletConfirmationEvent"
	TypeWalletRevocationEvent   = "bitrent/WalletRevocationEvent"
	TypeWalletExecutionEvent    = "bitrent/WalletExecutionEvent"
	TypeOwnerAddedEvent         = "bitrent/OwnerAddedEvent"
	TypeOwnerRemovedEvent       = "bitrent/OwnerRemovedEvent"
	TypeVaultCreditEvent        = "bitrent/VaultCreditEvent"
	TypeVaultDebitEvent         = "bitrent/VaultDebitEvent"
	TypeVaultMoveEvent          = "bitrent/VaultMoveEvent"
)

type Event interface {
	Type() string
}

type Events []Event

// DonationEvent is a presale deposit receipt
type DonationEvent struct {
	Address types.Address `json:"address"`
	Amount  string        `json:"amount"`
}

func (e *DonationEvent) Type() string { return TypeDonationEvent }

// InvestmentEvent is an ICO purchase
type InvestmentEvent struct {
	Address     types.Address `json:"address"`
	WeiAmount   string        `json:"wei_amount"`
	TokenAmount string        `json:"token_amount"`
}

func (e *InvestmentEvent) Type() string { return TypeInvestmentEvent }

// AllocationEvent is a manual token allocation by the backend, priced
// from the wei equivalent paid off-chain
type AllocationEvent struct {
	Address     types.Address   `json:"address"`
	AccountID   types.AccountID `json:"account_id"`
	WeiAmount   string          `json:"wei_amount"`
	TokenAmount string          `json:"token_amount"`
}

func (e *AllocationEvent) Type() string { return TypeAllocationEvent }

type PriceChangeEvent struct {
	OneTokenInWei string `json:"one_token_in_wei"`
}

func (e *PriceChangeEvent) Type() string { return TypePriceChangeEvent }

type PhaseChangeEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (e *PhaseChangeEvent) Type() string { return TypePhaseChangeEvent }

type TokenReleaseEvent struct {
	Agent types.Address `json:"agent"`
}

func (e *TokenReleaseEvent) Type() string { return TypeTokenReleaseEvent }

type WalletSubmissionEvent struct {
	TransactionID uint64        `json:"transaction_id"`
	Submitter     types.Address `json:"submitter"`
	Destination   types.Address `json:"destination"`
	Value         string        `json:"value"`
}

func (e *WalletSubmissionEvent) Type() string { return TypeWalletSubmissionEvent }

type WalletConfirmationEvent struct {
	TransactionID uint64        `json:"transaction_id"`
	Owner         types.Address `json:"owner"`
}

func (e *WalletConfirmationEvent) Type() string { return TypeWalletConfirmationEvent }

type WalletRevocationEvent struct {
	TransactionID uint64        `json:"transaction_id"`
	Owner         types.Address `json:"owner"`
}

func (e *WalletRevocationEvent) Type() string { return TypeWalletRevocationEvent }

type WalletExecutionEvent struct {
	TransactionID uint64 `json:"transaction_id"`
}

func (e *WalletExecutionEvent) Type() string { return TypeWalletExecutionEvent }

type OwnerAddedEvent struct {
	Address types.Address `json:"address"`
	Admin   bool          `json:"admin"`
}

func (e *OwnerAddedEvent) Type() string { return TypeOwnerAddedEvent }

type OwnerRemovedEvent struct {
	Address types.Address `json:"address"`
}

func (e *OwnerRemovedEvent) Type() string { return TypeOwnerRemovedEvent }

type VaultCreditEvent struct {
	AccountID types.AccountID `json:"account_id"`
	Amount    string          `json:"amount"`
}

func (e *VaultCreditEvent) Type() string { return TypeVaultCreditEvent }

type VaultDebitEvent struct {
	AccountID types.AccountID `json:"account_id"`
	Amount    string          `json:"amount"`
}

func (e *VaultDebitEvent) Type() string { return TypeVaultDebitEvent }

type VaultMoveEvent struct {
	AccountID types.AccountID `json:"account_id"`
	To        types.Address   `json:"to"`
	Amount    string          `json:"amount"`
}

func (e *VaultMoveEvent) Type() string { return TypeVaultMoveEvent }
