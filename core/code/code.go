package code

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Codes for operation responses
const (
	// general
	OK                     uint32 = 0
	NotAuthorized          uint32 = 101
	Paused                 uint32 = 102
	ZeroAddress            uint32 = 103
	InvalidParameter       uint32 = 104
	NotFound               uint32 = 105
	InsufficientBalance    uint32 = 106
	InvariantViolation     uint32 = 107
	InvalidStateTransition uint32 = 108

	// pricing
	DivisionByZero uint32 = 201

	// wallet
	AlreadyConfirmed          uint32 = 301
	NotConfirmed              uint32 = 302
	AlreadyExecuted           uint32 = 303
	InsufficientConfirmations uint32 = 304
	OwnerExists               uint32 = 305
	OwnerNotFound             uint32 = 306
	InvalidRequirement        uint32 = 307
	ExecutionFailed           uint32 = 308

	// vault
	UnknownAccount uint32 = 401

	// token
	InsufficientAllowance uint32 = 501
	TransferBlocked       uint32 = 502
	AlreadyReleased       uint32 = 503
)

// Error is a failed operation outcome carrying a numeric code and a typed
// info payload for the API layer.
type Error struct {
	code uint32
	log  string
	info interface{}
}

func NewError(code uint32, log string, info interface{}) *Error {
	return &Error{code: code, log: log, info: info}
}

func (e *Error) Error() string {
	return e.log
}

func (e *Error) Code() uint32 {
	return e.code
}

// Info returns the JSON-encoded payload of the error
func (e *Error) Info() string {
	if e.info == nil {
		return ""
	}

	b, err := json.Marshal(e.info)
	if err != nil {
		return ""
	}

	return string(b)
}

// CodeOf extracts the failure code from err, OK for nil and
// InvalidParameter for foreign errors.
func CodeOf(err error) uint32 {
	if err == nil {
		return OK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.code
	}

	return InvalidParameter
}

type notAuthorized struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewNotAuthorized(address string) *Error {
	return NewError(NotAuthorized, "caller "+address+" is not authorized",
		&notAuthorized{Code: strconv.Itoa(int(NotAuthorized)), Address: address})
}

type paused struct {
	Code      string `json:"code,omitempty"`
	Component string `json:"component,omitempty"`
}

func NewPaused(component string) *Error {
	return NewError(Paused, component+" is paused",
		&paused{Code: strconv.Itoa(int(Paused)), Component: component})
}

type zeroAddress struct {
	Code string `json:"code,omitempty"`
}

func NewZeroAddress() *Error {
	return NewError(ZeroAddress, "zero address is not allowed",
		&zeroAddress{Code: strconv.Itoa(int(ZeroAddress))})
}

type invalidParameter struct {
	Code string `json:"code,omitempty"`
	Log  string `json:"log,omitempty"`
}

func NewInvalidParameter(log string) *Error {
	return NewError(InvalidParameter, log,
		&invalidParameter{Code: strconv.Itoa(int(InvalidParameter)), Log: log})
}

type notFound struct {
	Code string `json:"code,omitempty"`
	What string `json:"what,omitempty"`
}

func NewNotFound(what string) *Error {
	return NewError(NotFound, what+" not found",
		&notFound{Code: strconv.Itoa(int(NotFound)), What: what})
}

type insufficientBalance struct {
	Code    string `json:"code,omitempty"`
	Account string `json:"account,omitempty"`
	Has     string `json:"has,omitempty"`
	Wants   string `json:"wants,omitempty"`
}

func NewInsufficientBalance(account, has, wants string) *Error {
	return NewError(InsufficientBalance,
		"insufficient balance of "+account+": has "+has+", wants "+wants,
		&insufficientBalance{
			Code:    strconv.Itoa(int(InsufficientBalance)),
			Account: account,
			Has:     has,
			Wants:   wants,
		})
}

type invariantViolation struct {
	Code string `json:"code,omitempty"`
	Log  string `json:"log,omitempty"`
}

func NewInvariantViolation(log string) *Error {
	return NewError(InvariantViolation, log,
		&invariantViolation{Code: strconv.Itoa(int(InvariantViolation)), Log: log})
}

type invalidStateTransition struct {
	Code string `json:"code,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func NewInvalidStateTransition(from, to string) *Error {
	return NewError(InvalidStateTransition, "sale cannot go from "+from+" to "+to,
		&invalidStateTransition{
			Code: strconv.Itoa(int(InvalidStateTransition)),
			From: from,
			To:   to,
		})
}

type divisionByZero struct {
	Code string `json:"code,omitempty"`
}

func NewDivisionByZero() *Error {
	return NewError(DivisionByZero, "token price is not set",
		&divisionByZero{Code: strconv.Itoa(int(DivisionByZero))})
}

type walletTransaction struct {
	Code          string `json:"code,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func newWalletTransactionError(code uint32, log string, id uint64) *Error {
	return NewError(code, log, &walletTransaction{
		Code:          strconv.Itoa(int(code)),
		TransactionID: strconv.FormatUint(id, 10),
	})
}

func NewAlreadyConfirmed(id uint64) *Error {
	return newWalletTransactionError(AlreadyConfirmed,
		"transaction "+strconv.FormatUint(id, 10)+" is already confirmed", id)
}

func NewNotConfirmed(id uint64) *Error {
	return newWalletTransactionError(NotConfirmed,
		"transaction "+strconv.FormatUint(id, 10)+" is not confirmed", id)
}

func NewAlreadyExecuted(id uint64) *Error {
	return newWalletTransactionError(AlreadyExecuted,
		"transaction "+strconv.FormatUint(id, 10)+" is already executed", id)
}

type executionFailed struct {
	Code          string `json:"code,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	CauseCode     string `json:"cause_code,omitempty"`
	Cause         string `json:"cause,omitempty"`
}

// NewExecutionFailed marks a recorded proposal whose dispatch failed. The
// submission and its confirmations stand, only the execution is aborted.
func NewExecutionFailed(id uint64, cause error) *Error {
	return NewError(ExecutionFailed,
		"transaction "+strconv.FormatUint(id, 10)+" failed to execute: "+cause.Error(),
		&executionFailed{
			Code:          strconv.Itoa(int(ExecutionFailed)),
			TransactionID: strconv.FormatUint(id, 10),
			CauseCode:     strconv.Itoa(int(CodeOf(cause))),
			Cause:         cause.Error(),
		})
}

type insufficientConfirmations struct {
	Code          string `json:"code,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Has           string `json:"has,omitempty"`
	Required      string `json:"required,omitempty"`
}

func NewInsufficientConfirmations(id uint64, has, required uint32) *Error {
	return NewError(InsufficientConfirmations,
		"transaction "+strconv.FormatUint(id, 10)+" has "+strconv.Itoa(int(has))+
			" of "+strconv.Itoa(int(required))+" confirmations",
		&insufficientConfirmations{
			Code:          strconv.Itoa(int(InsufficientConfirmations)),
			TransactionID: strconv.FormatUint(id, 10),
			Has:           strconv.Itoa(int(has)),
			Required:      strconv.Itoa(int(required)),
		})
}

type walletOwner struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewOwnerExists(address string) *Error {
	return NewError(OwnerExists, "owner "+address+" already exists",
		&walletOwner{Code: strconv.Itoa(int(OwnerExists)), Address: address})
}

func NewOwnerNotFound(address string) *Error {
	return NewError(OwnerNotFound, "owner "+address+" not found",
		&walletOwner{Code: strconv.Itoa(int(OwnerNotFound)), Address: address})
}

type invalidRequirement struct {
	Code     string `json:"code,omitempty"`
	Required string `json:"required,omitempty"`
	Owners   string `json:"owners,omitempty"`
}

func NewInvalidRequirement(required uint32, owners int) *Error {
	return NewError(InvalidRequirement,
		"invalid confirmation threshold "+strconv.Itoa(int(required))+
			" for "+strconv.Itoa(owners)+" owners",
		&invalidRequirement{
			Code:     strconv.Itoa(int(InvalidRequirement)),
			Required: strconv.Itoa(int(required)),
			Owners:   strconv.Itoa(owners),
		})
}

type unknownAccount struct {
	Code      string `json:"code,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

func NewUnknownAccount(id string) *Error {
	return NewError(UnknownAccount, "vault account "+id+" is not registered",
		&unknownAccount{Code: strconv.Itoa(int(UnknownAccount)), AccountID: id})
}

type insufficientAllowance struct {
	Code    string `json:"code,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Spender string `json:"spender,omitempty"`
	Has     string `json:"has,omitempty"`
	Wants   string `json:"wants,omitempty"`
}

func NewInsufficientAllowance(owner, spender, has, wants string) *Error {
	return NewError(InsufficientAllowance,
		"insufficient allowance of "+owner+" for "+spender+": has "+has+", wants "+wants,
		&insufficientAllowance{
			Code:    strconv.Itoa(int(InsufficientAllowance)),
			Owner:   owner,
			Spender: spender,
			Has:     has,
			Wants:   wants,
		})
}

type transferBlocked struct {
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

func NewTransferBlocked(address string) *Error {
	return NewError(TransferBlocked,
		"token is not released, transfers by "+address+" are blocked",
		&transferBlocked{Code: strconv.Itoa(int(TransferBlocked)), Address: address})
}

type alreadyReleased struct {
	Code string `json:"code,omitempty"`
}

func NewAlreadyReleased() *Error {
	return NewError(AlreadyReleased, "token is already released",
		&alreadyReleased{Code: strconv.Itoa(int(AlreadyReleased))})
}
