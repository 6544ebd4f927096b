package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	rewards "azorion/native/taskrewards"
	"azorion/storage"
)

func TestLedgerTransfer(t *testing.T) {
	ledger := NewLedger(storage.NewMemDB())
	custody, claimant := rewards.Identity{1}, rewards.Identity{2}
	require.NoError(t, ledger.Fund(custody, 10_000_000))

	require.NoError(t, ledger.Transfer(context.Background(), custody, claimant, 9_000_000))
	balance, err := ledger.Balance(custody)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), balance)
	balance, err = ledger.Balance(claimant)
	require.NoError(t, err)
	require.Equal(t, uint64(9_000_000), balance)

	err = ledger.Transfer(context.Background(), custody, claimant, 4_500_000)
	require.ErrorIs(t, err, ErrInsufficientCustody)
	balance, err = ledger.Balance(claimant)
	require.NoError(t, err)
	require.Equal(t, uint64(9_000_000), balance)
}

func TestFuncWallet(t *testing.T) {
	boom := errors.New("boom")
	w := FuncWallet{TransferFunc: func(context.Context, rewards.Identity, rewards.Identity, uint64) error { return boom }}
	require.ErrorIs(t, w.Transfer(context.Background(), rewards.Identity{}, rewards.Identity{1}, 1), boom)
	require.Error(t, FuncWallet{}.Transfer(context.Background(), rewards.Identity{}, rewards.Identity{1}, 1))
}

func TestLedgerReverse(t *testing.T) {
	ledger := NewLedger(storage.NewMemDB())
	custody, claimant := rewards.Identity{1}, rewards.Identity{2}
	require.NoError(t, ledger.Fund(custody, 10_000_000))
	require.NoError(t, ledger.Transfer(context.Background(), custody, claimant, 9_000_000))

	require.NoError(t, ledger.Reverse(context.Background(), custody, claimant, 9_000_000))
	balance, err := ledger.Balance(custody)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000), balance)
	balance, err = ledger.Balance(claimant)
	require.NoError(t, err)
	require.Zero(t, balance)

	err = ledger.Reverse(context.Background(), custody, claimant, 1)
	require.ErrorIs(t, err, ErrReversalShortfall)
}

func TestLedgerEnsureBalance(t *testing.T) {
	ledger := NewLedger(storage.NewMemDB())
	custody := rewards.Identity{1}

	credited, err := ledger.EnsureBalance(custody, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), credited)

	credited, err = ledger.EnsureBalance(custody, 1_000)
	require.NoError(t, err)
	require.Zero(t, credited)

	require.NoError(t, ledger.Transfer(context.Background(), custody, rewards.Identity{2}, 400))
	credited, err = ledger.EnsureBalance(custody, 600)
	require.NoError(t, err)
	require.Zero(t, credited)
	credited, err = ledger.EnsureBalance(custody, 900)
	require.NoError(t, err)
	require.Equal(t, uint64(300), credited)
	balance, err := ledger.Balance(custody)
	require.NoError(t, err)
	require.Equal(t, uint64(900), balance)
}

func TestFuncWalletReverse(t *testing.T) {
	var reversed uint64
	w := FuncWallet{ReverseFunc: func(_ context.Context, _, _ rewards.Identity, amount uint64) error {
		reversed += amount
		return nil
	}}
	require.NoError(t, w.Reverse(context.Background(), rewards.Identity{1}, rewards.Identity{2}, 7))
	require.Equal(t, uint64(7), reversed)
	require.Error(t, FuncWallet{}.Reverse(context.Background(), rewards.Identity{1}, rewards.Identity{2}, 1))
}
