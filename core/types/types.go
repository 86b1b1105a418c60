package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// AddressLength is the expected length of an address in bytes
const AddressLength = 20

// Address is a platform participant identifier
type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress decodes s, with or without the 0x prefix, into an Address
func HexToAddress(s string) Address {
	if hasHexPrefix(s) {
		s = s[2:]
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid address %q: %s", s, err))
	}

	return BytesToAddress(b)
}

// IsHexAddress verifies whether a string can represent a valid hex-encoded
// address or not.
func IsHexAddress(s string) bool {
	if hasHexPrefix(s) {
		s = s[2:]
	}

	if len(s) != 2*AddressLength {
		return false
	}

	_, err := hex.DecodeString(s)
	return err == nil
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements the stringer interface and is used also by the logger.
func (a Address) String() string {
	return a.Hex()
}

// SetBytes sets the address to the value of b. Longer input keeps the
// rightmost AddressLength bytes.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a Address) Compare(a2 Address) int {
	return bytes.Compare(a.Bytes(), a2.Bytes())
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.String())), nil
}

func (a *Address) UnmarshalJSON(input []byte) error {
	if len(input) < 2 || input[0] != '"' || input[len(input)-1] != '"' {
		return fmt.Errorf("address must be a quoted hex string")
	}

	s := string(input[1 : len(input)-1])
	if !IsHexAddress(s) {
		return fmt.Errorf("invalid address %q", s)
	}

	*a = HexToAddress(s)
	return nil
}

// ContractAddress derives a component address from its creator and a nonce
func ContractAddress(creator Address, nonce uint64) Address {
	b := make([]byte, AddressLength+8)
	copy(b, creator.Bytes())
	binary.BigEndian.PutUint64(b[AddressLength:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(b)

	return BytesToAddress(h.Sum(nil)[12:])
}

// AccountIDLength is the expected length of a vault account id in bytes
const AccountIDLength = 16

// AccountID is the off-chain account identifier used by the vault, a UUID
type AccountID [AccountIDLength]byte

// ParseAccountID parses the canonical UUID form
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}

	return AccountID(u), nil
}

func BytesToAccountID(b []byte) AccountID {
	var id AccountID
	copy(id[:], b)
	return id
}

func (id AccountID) Bytes() []byte { return id[:] }

func (id AccountID) String() string {
	return uuid.UUID(id).String()
}

func (id AccountID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", id.String())), nil
}

func (id *AccountID) UnmarshalJSON(input []byte) error {
	if len(input) < 2 || input[0] != '"' || input[len(input)-1] != '"' {
		return fmt.Errorf("account id must be a quoted UUID string")
	}

	parsed, err := ParseAccountID(string(input[1 : len(input)-1]))
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

// Big returns b or zero when b is nil
func Big(b *big.Int) *big.Int {
	if b == nil {
		return big.NewInt(0)
	}

	return b
}
