package rewardd

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ReceiptsCSV serialises receipts and returns the payload with its SHA-256
// checksum.
func ReceiptsCSV(receipts []ClaimReceipt) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	w := csv.NewWriter(buffer)
	header := []string{
		"id", "claimant", "activity", "base_reward", "adjusted_reward", "reward", "repetition",
		"penalty_bps", "balance_after", "reward_total", "claimed_at", "digest", "signature",
	}
	if err := w.Write(header); err != nil {
		return nil, "", err
	}
	for _, r := range receipts {
		record := []string{
			r.ID.String(),
			r.Claimant,
			r.Activity,
			strconv.FormatUint(r.BaseReward, 10),
			strconv.FormatUint(r.AdjustedReward, 10),
			strconv.FormatUint(r.Reward, 10),
			strconv.FormatUint(uint64(r.Repetition), 10),
			strconv.FormatUint(uint64(r.PenaltyBps), 10),
			strconv.FormatUint(r.BalanceAfter, 10),
			strconv.FormatUint(r.RewardTotal, 10),
			strconv.FormatInt(r.ClaimedAt, 10),
			r.Digest,
			r.Signature,
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

type parquetReceipt struct {
	ID             string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Claimant       string `parquet:"name=claimant, type=BYTE_ARRAY, convertedtype=UTF8"`
	Activity       string `parquet:"name=activity, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseReward     int64  `parquet:"name=base_reward, type=INT64"`
	AdjustedReward int64  `parquet:"name=adjusted_reward, type=INT64"`
	Reward         int64  `parquet:"name=reward, type=INT64"`
	Repetition     int32  `parquet:"name=repetition, type=INT32"`
	PenaltyBps     int32  `parquet:"name=penalty_bps, type=INT32"`
	BalanceAfter   int64  `parquet:"name=balance_after, type=INT64"`
	RewardTotal    int64  `parquet:"name=reward_total, type=INT64"`
	ClaimedAt      int64  `parquet:"name=claimed_at, type=INT64"`
	Digest         string `parquet:"name=digest, type=BYTE_ARRAY, convertedtype=UTF8"`
	Signature      string `parquet:"name=signature, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ReceiptsParquet serialises receipts as a snappy-compressed parquet file.
// Amounts above math.MaxInt64 are rejected.
func ReceiptsParquet(receipts []ClaimReceipt) ([]byte, error) {
	buffer := &bytes.Buffer{}
	fw := writerfile.NewWriterFile(buffer)
	pw, err := writer.NewParquetWriter(fw, new(parquetReceipt), 1)
	if err != nil {
		return nil, fmt.Errorf("rewardd: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range receipts {
		row, err := toParquetReceipt(r)
		if err != nil {
			pw.WriteStop()
			return nil, err
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("rewardd: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("rewardd: parquet flush: %w", err)
	}
	return buffer.Bytes(), nil
}

func toParquetReceipt(r ClaimReceipt) (*parquetReceipt, error) {
	amounts := []uint64{r.BaseReward, r.AdjustedReward, r.Reward, r.BalanceAfter, r.RewardTotal}
	for _, amount := range amounts {
		if amount > 1<<63-1 {
			return nil, fmt.Errorf("rewardd: amount %d exceeds parquet INT64 range", amount)
		}
	}
	return &parquetReceipt{
		ID:             r.ID.String(),
		Claimant:       r.Claimant,
		Activity:       r.Activity,
		BaseReward:     int64(r.BaseReward),
		AdjustedReward: int64(r.AdjustedReward),
		Reward:         int64(r.Reward),
		Repetition:     int32(r.Repetition),
		PenaltyBps:     int32(r.PenaltyBps),
		BalanceAfter:   int64(r.BalanceAfter),
		RewardTotal:    int64(r.RewardTotal),
		ClaimedAt:      r.ClaimedAt,
		Digest:         r.Digest,
		Signature:      r.Signature,
	}, nil
}
