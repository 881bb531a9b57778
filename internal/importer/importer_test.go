package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/ledgersieve/internal/model"
	"github.com/calloway/ledgersieve/internal/storage"
)

func newTestImporter(t *testing.T) (*Importer, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	return New(store, nil), store
}

func TestImportBasicCSV(t *testing.T) {
	imp, store := newTestImporter(t)

	csv := `date,description,amount
2024-03-01,Blue Bottle coffee,4.50
2024-03-02,Rent,2500.00
`
	result, err := imp.Import(context.Background(), "owner-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	got, err := store.GetTransactionsByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byDescription := make(map[string]model.Transaction, len(got))
	for _, txn := range got {
		byDescription[txn.Description] = txn
	}
	coffee := byDescription["Blue Bottle coffee"]
	assert.True(t, coffee.Amount.Equal(decimal.RequireFromString("4.50")))
	assert.True(t, coffee.HasDate())
	assert.Equal(t, "2024-03-01", coffee.Date.Format("2006-01-02"))
}

func TestImportSkipsUnparseableAmounts(t *testing.T) {
	imp, store := newTestImporter(t)

	csv := `date,description,amount
2024-03-01,good row,10.00
2024-03-02,bad row,ten dollars
2024-03-03,blank amount,
`
	result, err := imp.Import(context.Background(), "owner-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	got, err := store.GetTransactionsByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good row", got[0].Description)
}

func TestImportToleratesMissingDateAndDescription(t *testing.T) {
	imp, store := newTestImporter(t)

	csv := `date,description,amount
,,12.34
not-a-date,kiosk,5.00
`
	result, err := imp.Import(context.Background(), "owner-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	got, err := store.GetTransactionsByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, txn := range got {
		assert.False(t, txn.HasDate(), "unparseable dates import as absent")
	}
}

func TestImportDateLayouts(t *testing.T) {
	imp, store := newTestImporter(t)

	csv := `date,description,amount
2024-03-01T10:30:00Z,rfc3339,1.00
03/15/2024,us slashes,2.00
2024-03-20 14:00:00,datetime,3.00
`
	result, err := imp.Import(context.Background(), "owner-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	got, err := store.GetTransactionsByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, txn := range got {
		assert.True(t, txn.HasDate(), "description %q", txn.Description)
	}
}

func TestImportEmptyFile(t *testing.T) {
	imp, _ := newTestImporter(t)

	result, err := imp.Import(context.Background(), "owner-1", strings.NewReader("date,description,amount\n"))
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}

func TestImportMalformedCSV(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Import(context.Background(), "owner-1", strings.NewReader(`date,description,amount
"unterminated,1,2`))
	require.Error(t, err)
}

func TestImportFileMissing(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.ImportFile(context.Background(), "owner-1", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
