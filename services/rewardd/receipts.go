package rewardd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	azrcrypto "azorion/crypto"
	rewards "azorion/native/taskrewards"
)

// ErrReceiptSignature is returned when a receipt signature does not recover to
// the program authority.
var ErrReceiptSignature = errors.New("rewardd: receipt signature mismatch")

// ClaimReceipt is the durable record of an accepted claim.
type ClaimReceipt struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Claimant       string    `gorm:"index;not null" json:"claimant"`
	Activity       string    `gorm:"not null" json:"activity"`
	BaseReward     uint64    `json:"base_reward"`
	AdjustedReward uint64    `json:"adjusted_reward"`
	Reward         uint64    `json:"reward"`
	Repetition     uint8     `json:"repetition"`
	PenaltyBps     uint32    `json:"penalty_bps"`
	BalanceAfter   uint64    `json:"balance_after"`
	RewardTotal    uint64    `json:"reward_total"`
	ClaimedAt      int64     `gorm:"index" json:"claimed_at"`
	Digest         string    `json:"digest"`
	Signature      string    `json:"signature"`
	CreatedAt      time.Time `json:"created_at"`
}

// CanonicalBytes returns the byte string covered by the authority signature.
func (r *ClaimReceipt) CanonicalBytes() []byte {
	return []byte(fmt.Sprintf("azorion-receipt|v1|%s|%s|%s|%d|%d|%d|%d|%d|%d|%d|%d",
		r.ID.String(),
		strings.ToLower(r.Claimant),
		r.Activity,
		r.BaseReward,
		r.AdjustedReward,
		r.Reward,
		r.Repetition,
		r.PenaltyBps,
		r.BalanceAfter,
		r.RewardTotal,
		r.ClaimedAt,
	))
}

// ReceiptFromOutcome builds an unsigned receipt for an accepted claim.
func ReceiptFromOutcome(claimant rewards.Identity, outcome *rewards.ClaimOutcome, claimedAt int64) *ClaimReceipt {
	return &ClaimReceipt{
		ID:             uuid.New(),
		Claimant:       claimant.Hex(),
		Activity:       outcome.Activity.Key(),
		BaseReward:     outcome.BaseReward,
		AdjustedReward: outcome.AdjustedReward,
		Reward:         outcome.Reward,
		Repetition:     outcome.Repetition,
		PenaltyBps:     outcome.PenaltyBps(),
		BalanceAfter:   outcome.Program.CurrentBalance,
		RewardTotal:    outcome.User.RewardTotal,
		ClaimedAt:      claimedAt,
	}
}

// ReceiptSigner signs receipts with the program authority key.
type ReceiptSigner struct {
	key *azrcrypto.PrivateKey
}

// NewReceiptSigner wraps key.
func NewReceiptSigner(key *azrcrypto.PrivateKey) *ReceiptSigner {
	return &ReceiptSigner{key: key}
}

// Identity returns the identity derived from the signing key.
func (s *ReceiptSigner) Identity() rewards.Identity {
	if s == nil || s.key == nil {
		return rewards.Identity{}
	}
	id, _ := rewards.IdentityFromBytes(s.key.PubKey().Address().Bytes())
	return id
}

// Sign fills in the digest and signature of receipt.
func (s *ReceiptSigner) Sign(receipt *ClaimReceipt) error {
	if s == nil || s.key == nil {
		return fmt.Errorf("rewardd: receipt signer not configured")
	}
	payload := receipt.CanonicalBytes()
	sig, err := s.key.Sign(payload)
	if err != nil {
		return fmt.Errorf("rewardd: sign receipt: %w", err)
	}
	receipt.Digest = hex.EncodeToString(crypto.Keccak256(payload))
	receipt.Signature = hex.EncodeToString(sig)
	return nil
}

// VerifyReceipt checks that receipt was signed by authority.
func VerifyReceipt(receipt *ClaimReceipt, authority rewards.Identity) error {
	if receipt == nil {
		return fmt.Errorf("rewardd: nil receipt")
	}
	sig, err := hex.DecodeString(receipt.Signature)
	if err != nil {
		return fmt.Errorf("rewardd: decode signature: %w", err)
	}
	addr, err := azrcrypto.RecoverAddress(receipt.CanonicalBytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReceiptSignature, err)
	}
	signer, err := rewards.IdentityFromBytes(addr.Bytes())
	if err != nil {
		return err
	}
	if signer != authority {
		return ErrReceiptSignature
	}
	return nil
}

// OpenReceiptDB opens the receipt database for driver.
func OpenReceiptDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("rewardd: unknown receipts driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// ReceiptStore persists claim receipts.
type ReceiptStore struct {
	db *gorm.DB
}

// NewReceiptStore migrates the schema and wraps db.
func NewReceiptStore(db *gorm.DB) (*ReceiptStore, error) {
	if db == nil {
		return nil, fmt.Errorf("rewardd: receipts database required")
	}
	if err := db.AutoMigrate(&ClaimReceipt{}); err != nil {
		return nil, fmt.Errorf("rewardd: migrate receipts: %w", err)
	}
	return &ReceiptStore{db: db}, nil
}

// Record inserts receipt.
func (s *ReceiptStore) Record(ctx context.Context, receipt *ClaimReceipt) error {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(receipt).Error
}

// ListByClaimant returns the most recent receipts for claimant (hex form).
func (s *ReceiptStore) ListByClaimant(ctx context.Context, claimant string, limit int) ([]ClaimReceipt, error) {
	var out []ClaimReceipt
	query := s.db.WithContext(ctx).Where("claimant = ?", strings.ToLower(claimant)).Order("claimed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// List returns receipts with claimed_at in [from, to], oldest first. A zero to
// means no upper bound.
func (s *ReceiptStore) List(ctx context.Context, from, to int64) ([]ClaimReceipt, error) {
	var out []ClaimReceipt
	query := s.db.WithContext(ctx).Where("claimed_at >= ?", from)
	if to > 0 {
		query = query.Where("claimed_at <= ?", to)
	}
	if err := query.Order("claimed_at asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
