package wallet

import (
	"math/big"
	"sync"

	"github.com/bitrent/bitrent-ico/core/types"
)

// Owner is one wallet participant. Admins may restructure the wallet,
// plain owners only confirm transactions.
type Owner struct {
	Address types.Address
	Admin   bool
}

// Info is the persisted wallet descriptor
type Info struct {
	Address          types.Address
	Owners           []Owner
	Required         uint32
	Paused           bool
	TransactionCount uint64
}

func (i *Info) ownerIndex(address types.Address) int {
	for n, o := range i.Owners {
		if o.Address == address {
			return n
		}
	}

	return -1
}

func (i *Info) isOwner(address types.Address) bool {
	return i.ownerIndex(address) != -1
}

func (i *Info) isAdmin(address types.Address) bool {
	n := i.ownerIndex(address)
	return n != -1 && i.Owners[n].Admin
}

func (i *Info) adminCount() int {
	count := 0
	for _, o := range i.Owners {
		if o.Admin {
			count++
		}
	}

	return count
}

// Transaction is one persisted wallet proposal
type Transaction struct {
	ID            uint64
	Destination   types.Address
	Value         []byte
	Data          []byte
	Executed      bool
	Confirmations []types.Address

	markDirty func(id uint64)

	lock sync.RWMutex
}

func (tx *Transaction) Amount() *big.Int {
	tx.lock.RLock()
	defer tx.lock.RUnlock()

	return big.NewInt(0).SetBytes(tx.Value)
}

func (tx *Transaction) IsConfirmedBy(address types.Address) bool {
	tx.lock.RLock()
	defer tx.lock.RUnlock()

	for _, a := range tx.Confirmations {
		if a == address {
			return true
		}
	}

	return false
}

func (tx *Transaction) ConfirmationCount() uint32 {
	tx.lock.RLock()
	defer tx.lock.RUnlock()

	return uint32(len(tx.Confirmations))
}

func (tx *Transaction) confirm(address types.Address) {
	tx.lock.Lock()
	defer tx.lock.Unlock()

	tx.Confirmations = append(tx.Confirmations, address)
	tx.markDirty(tx.ID)
}

func (tx *Transaction) revoke(address types.Address) {
	tx.lock.Lock()
	defer tx.lock.Unlock()

	for i, a := range tx.Confirmations {
		if a == address {
			tx.Confirmations = append(tx.Confirmations[:i], tx.Confirmations[i+1:]...)
			break
		}
	}
	tx.markDirty(tx.ID)
}

func (tx *Transaction) markExecuted() {
	tx.lock.Lock()
	defer tx.lock.Unlock()

	tx.Executed = true
	tx.markDirty(tx.ID)
}
