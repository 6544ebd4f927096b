package rewardd_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	azrcrypto "azorion/crypto"
	rewards "azorion/native/taskrewards"
	"azorion/services/rewardd"
	"azorion/services/rewardd/wallet"
	rewardstate "azorion/state/taskrewards"
	"azorion/storage"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(unix int64) *testClock {
	return &testClock{now: time.Unix(unix, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedEntropy uint64

func (f fixedEntropy) Entropy(time.Time, *rewards.ProgramState) uint64 { return uint64(f) }

type fixture struct {
	clock     *testClock
	db        storage.Database
	ledger    *wallet.Ledger
	receipts  *rewardd.ReceiptStore
	signer    *rewardd.ReceiptSigner
	hub       *rewardd.Hub
	processor *rewardd.Processor
	authority rewards.Identity
	program   *rewards.ProgramState
}

var testClaimant = rewards.Identity{0xbb, 0x01}

func newReceiptStore(t *testing.T) *rewardd.ReceiptStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := rewardd.OpenReceiptDB(rewardd.DriverSQLite, dsn)
	require.NoError(t, err)
	store, err := rewardd.NewReceiptStore(db)
	require.NoError(t, err)
	return store
}

func newFixture(t *testing.T, opts ...rewardd.ProcessorOption) *fixture {
	t.Helper()
	key, err := azrcrypto.GeneratePrivateKey()
	require.NoError(t, err)
	signer := rewardd.NewReceiptSigner(key)

	f := &fixture{
		clock:     newTestClock(1_700_000_000),
		db:        storage.NewMemDB(),
		receipts:  newReceiptStore(t),
		signer:    signer,
		hub:       rewardd.NewHub(),
		authority: signer.Identity(),
	}
	f.ledger = wallet.NewLedger(f.db)

	engine := rewards.NewEngine(rewards.WithEmitter(f.hub))
	base := []rewardd.ProcessorOption{
		rewardd.WithEngine(engine),
		rewardd.WithWallet(f.ledger),
		rewardd.WithReceipts(f.receipts, signer),
		rewardd.WithEntropy(fixedEntropy(5)),
		rewardd.WithClock(f.clock.Now),
	}
	f.processor = rewardd.NewProcessor(rewardstate.NewStore(f.db), append(base, opts...)...)

	program, err := f.processor.Initialize(rewards.InitParams{
		InitialSupply: 1000,
		MinTasks:      2,
		MaxTasks:      10,
		Authority:     f.authority,
		Now:           f.clock.Now().Unix(),
	})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Fund(program.Custody, program.TotalSupply))
	f.program = program
	return f
}
