package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txns.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTransactionsCSV(t *testing.T) {
	path := writeCSV(t, `description,amount,merchant,mcc
STARBUCKS #1234 SEATTLE WA,6.50,,5462
AMZN Mktp US,24.99,AMAZON,
`)

	txns, err := readTransactionsCSV(path)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "STARBUCKS #1234 SEATTLE WA", txns[0].Description)
	assert.Equal(t, 6.50, txns[0].Amount)
	assert.Equal(t, "5462", txns[0].MCCCode)
	assert.Empty(t, txns[0].MerchantName)

	assert.Equal(t, "AMAZON", txns[1].MerchantName)
	assert.Empty(t, txns[1].MCCCode)
}

func TestReadTransactionsCSV_MinimalColumns(t *testing.T) {
	path := writeCSV(t, "amount,description\n10.00,LOCAL BAKERY\n")

	txns, err := readTransactionsCSV(path)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "LOCAL BAKERY", txns[0].Description)
	assert.Equal(t, 10.0, txns[0].Amount)
}

func TestReadTransactionsCSV_Errors(t *testing.T) {
	t.Run("missing description column", func(t *testing.T) {
		path := writeCSV(t, "amount,merchant\n10,STARBUCKS\n")
		_, err := readTransactionsCSV(path)
		assert.Error(t, err)
	})

	t.Run("bad amount", func(t *testing.T) {
		path := writeCSV(t, "description,amount\nSTARBUCKS,lots\n")
		_, err := readTransactionsCSV(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readTransactionsCSV(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})
}
