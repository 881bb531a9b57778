// Package anomaly computes data-quality and anomaly flags over a batch of
// transactions: duplicates, amount outliers, incomplete records, and
// uncategorized records.
package anomaly

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calloway/ledgersieve/internal/model"
)

// Detector flags anomalous transactions within a batch.
type Detector struct {
	logger *slog.Logger
	// sigmas is the outlier threshold: amounts beyond mean ± sigmas·stddev
	// are flagged unusual_amount.
	sigmas float64
}

// New creates a detector with the standard two-sigma outlier threshold.
func New(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger, sigmas: 2.0}
}

// Detect recomputes the flag set for every eligible transaction in the batch
// and returns a transaction ID to flag-set mapping. The returned sets are
// replacements, not additions: an empty set means all previous flags clear.
// Approved transactions are excluded entirely, both from flagging and from the
// batch statistics.
func (d *Detector) Detect(transactions []model.Transaction) map[string][]model.FlagKind {
	eligible := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.WasApproved {
			continue
		}
		eligible = append(eligible, txn)
	}

	flags := make(map[string][]model.FlagKind, len(eligible))
	if len(eligible) == 0 {
		return flags
	}

	mean, stddev := amountStats(eligible)
	upper := mean + d.sigmas*stddev
	lower := mean - d.sigmas*stddev

	// The first transaction seen with a given (amount, date, description) key
	// is not flagged; every later occurrence is.
	seen := make(map[string]bool, len(eligible))

	for _, txn := range eligible {
		set := make([]model.FlagKind, 0, 2)

		if txn.Description == "" || !txn.HasDate() {
			set = append(set, model.FlagIncomplete)
		}

		key := duplicateKey(txn)
		if seen[key] {
			set = append(set, model.FlagDuplicate)
		}
		seen[key] = true

		// With fewer than two distinct amounts the deviation collapses to
		// zero and the check is meaningless, so it never fires.
		if stddev > 0 {
			amount := txn.Amount.InexactFloat64()
			if amount > upper || amount < lower {
				set = append(set, model.FlagUnusualAmount)
			}
		}

		if len(txn.Categories) == 0 {
			set = append(set, model.FlagUncategorized)
		}

		flags[txn.ID] = set
	}

	d.logger.Debug("anomaly detection complete",
		"eligible", len(eligible),
		"mean", mean,
		"stddev", stddev)

	return flags
}

// amountStats returns the mean and population standard deviation of the batch
// amounts. Statistics are the one place float64 touches money; every exact
// comparison elsewhere stays decimal.
func amountStats(transactions []model.Transaction) (mean, stddev float64) {
	n := float64(len(transactions))

	var sum float64
	for _, txn := range transactions {
		sum += txn.Amount.InexactFloat64()
	}
	mean = sum / n

	var sumSquares float64
	for _, txn := range transactions {
		diff := txn.Amount.InexactFloat64() - mean
		sumSquares += diff * diff
	}
	stddev = math.Sqrt(sumSquares / n)
	return mean, stddev
}

// duplicateKey builds the composite identity used for duplicate detection.
func duplicateKey(txn model.Transaction) string {
	date := ""
	if txn.HasDate() {
		date = txn.Date.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s", canonicalAmount(txn.Amount), date, txn.Description)
}

// canonicalAmount renders an amount without trailing fractional zeros, so
// "10.00" and "10" produce the same duplicate key. Decimal's String keeps the
// scale the value was parsed with.
func canonicalAmount(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
