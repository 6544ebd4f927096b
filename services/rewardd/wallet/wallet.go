package wallet

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	rewards "azorion/native/taskrewards"
	"azorion/storage"
)

// ErrInsufficientCustody is returned when the custody account cannot cover a
// payout.
var ErrInsufficientCustody = errors.New("wallet: insufficient custody balance")

// ErrReversalShortfall is returned when a claimant no longer holds the payout
// being reversed.
var ErrReversalShortfall = errors.New("wallet: claimant balance below reversal amount")

// FuncWallet adapts callbacks to the rewards.Transferer and rewards.Reverser
// interfaces.
type FuncWallet struct {
	TransferFunc func(ctx context.Context, from, to rewards.Identity, amount uint64) error
	ReverseFunc  func(ctx context.Context, from, to rewards.Identity, amount uint64) error
}

// Transfer delegates to the configured callback.
func (w FuncWallet) Transfer(ctx context.Context, from, to rewards.Identity, amount uint64) error {
	if w.TransferFunc == nil {
		return fmt.Errorf("wallet: transfer callback not configured")
	}
	return w.TransferFunc(ctx, from, to, amount)
}

// Reverse delegates to the configured reversal callback.
func (w FuncWallet) Reverse(ctx context.Context, from, to rewards.Identity, amount uint64) error {
	if w.ReverseFunc == nil {
		return fmt.Errorf("wallet: reverse callback not configured")
	}
	return w.ReverseFunc(ctx, from, to, amount)
}

const balanceKeyPrefix = "wallet/balance/"

// Ledger keeps payout balances in the key-value store. Custody is debited and
// the claimant credited in a single batch so a failed write moves nothing.
type Ledger struct {
	db storage.Database
	mu sync.Mutex
}

// NewLedger wraps db.
func NewLedger(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

func balanceKey(id rewards.Identity) []byte {
	return []byte(balanceKeyPrefix + hex.EncodeToString(id[:]))
}

// Balance returns the current balance of id.
func (l *Ledger) Balance(id rewards.Identity) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(id)
}

func (l *Ledger) balance(id rewards.Identity) (uint64, error) {
	data, err := l.db.Get(balanceKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("wallet: corrupt balance for %s", id.Hex())
	}
	return binary.BigEndian.Uint64(data), nil
}

// Fund credits amount to id, typically to seed the custody float.
func (l *Ledger) Fund(id rewards.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.balance(id)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(current), uint256.NewInt(amount))
	if overflow || !next.IsUint64() {
		return fmt.Errorf("wallet: balance overflow for %s", id.Hex())
	}
	return l.db.Put(balanceKey(id), encodeBalance(next.Uint64()))
}

// EnsureBalance credits id with whatever it lacks to hold at least amount and
// returns the credited difference.
func (l *Ledger) EnsureBalance(id rewards.Identity, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.balance(id)
	if err != nil {
		return 0, err
	}
	if current >= amount {
		return 0, nil
	}
	if err := l.db.Put(balanceKey(id), encodeBalance(amount)); err != nil {
		return 0, err
	}
	return amount - current, nil
}

// Transfer implements rewards.Transferer.
func (l *Ledger) Transfer(ctx context.Context, from, to rewards.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("wallet: self transfer")
	}
	return l.move(from, to, amount, ErrInsufficientCustody)
}

// Reverse implements rewards.Reverser by returning amount from the claimant to
// custody.
func (l *Ledger) Reverse(_ context.Context, from, to rewards.Identity, amount uint64) error {
	if from == to {
		return fmt.Errorf("wallet: self transfer")
	}
	return l.move(to, from, amount, ErrReversalShortfall)
}

func (l *Ledger) move(from, to rewards.Identity, amount uint64, short error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fromBalance, err := l.balance(from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return short
	}
	toBalance, err := l.balance(to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(toBalance), uint256.NewInt(amount))
	if overflow || !credited.IsUint64() {
		return fmt.Errorf("wallet: balance overflow for %s", to.Hex())
	}
	batch := l.db.NewBatch()
	batch.Put(balanceKey(from), encodeBalance(fromBalance-amount))
	batch.Put(balanceKey(to), encodeBalance(credited.Uint64()))
	return batch.Write()
}

func encodeBalance(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

var (
	_ rewards.Transferer = FuncWallet{}
	_ rewards.Transferer = (*Ledger)(nil)
	_ rewards.Reverser   = FuncWallet{}
	_ rewards.Reverser   = (*Ledger)(nil)
)
