// Package importer reads transactions from CSV files into storage.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calloway/ledgersieve/internal/model"
	"github.com/calloway/ledgersieve/internal/service"
)

// csvRow is the expected import format. Description and date may be blank;
// the anomaly detector flags those rows as incomplete after import.
type csvRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
}

// Result summarizes an import run.
type Result struct {
	Imported int
	Skipped  int
}

// Importer parses CSV files and saves the resulting transactions.
type Importer struct {
	storage service.Storage
	logger  *slog.Logger
}

// New creates a CSV importer.
func New(storage service.Storage, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{storage: storage, logger: logger}
}

// ImportFile imports transactions for the given owner from a CSV file.
func (i *Importer) ImportFile(ctx context.Context, ownerID, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return i.Import(ctx, ownerID, f)
}

// Import reads CSV rows and saves them as transactions. Rows without a
// parseable amount are skipped with a warning; rows with a missing or
// unparseable date are imported dateless and left to the detector to flag.
func (i *Importer) Import(ctx context.Context, ownerID string, r io.Reader) (Result, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return Result{}, fmt.Errorf("failed to parse CSV: %w", err)
	}

	var result Result
	transactions := make([]model.Transaction, 0, len(rows))
	for idx, row := range rows {
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			i.logger.Warn("skipping row with unparseable amount",
				"row", idx+1,
				"amount", row.Amount)
			result.Skipped++
			continue
		}

		transactions = append(transactions, model.Transaction{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Amount:      amount,
			Description: strings.TrimSpace(row.Description),
			Date:        parseDate(row.Date),
		})
	}

	if len(transactions) == 0 {
		return result, nil
	}

	if err := i.storage.SaveTransactions(ctx, transactions); err != nil {
		return result, fmt.Errorf("failed to save transactions: %w", err)
	}

	result.Imported = len(transactions)
	i.logger.Info("import complete",
		"owner_id", ownerID,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

// parseDate accepts the date layouts seen in bank exports; anything else
// yields a zero time, which the detector flags as incomplete.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
