package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func batchCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify a CSV file of transactions",
		Long: `Batch classifies every row of a CSV file concurrently. The file needs a
header row with at least "description" and "amount" columns; "merchant" and
"mcc" columns are used when present. One row failing never aborts the rest.`,
		Example: `  ledgerlens batch --input transactions.csv
  ledgerlens batch -i transactions.csv --results results.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txns, err := readTransactionsCSV(inputPath)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				return fmt.Errorf("no transactions found in %s", inputPath)
			}

			p, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			bar := progressbar.NewOptions(len(txns),
				progressbar.OptionSetDescription("Classifying"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			results := p.engine.ProcessBatch(cmd.Context(), txns, func(done int) {
				_ = bar.Set(done)
			})
			_ = bar.Finish()

			succeeded := 0
			failed := 0
			byCategory := make(map[string]int)
			for _, r := range results {
				if r.Status == model.StatusSuccess {
					succeeded++
					byCategory[r.Decision.Category]++
				} else {
					failed++
				}
			}

			fmt.Printf("Classified %d transactions: %d succeeded, %d failed\n",
				len(results), succeeded, failed)
			for category, count := range byCategory {
				fmt.Printf("  %-25s %d\n", category, count)
			}

			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("failed to create results file: %w", err)
				}
				defer func() { _ = f.Close() }()
				if err := printJSON(f, results); err != nil {
					return fmt.Errorf("failed to write results: %w", err)
				}
				fmt.Printf("Results written to %s\n", outputPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV file of transactions (required)")
	cmd.Flags().StringVar(&outputPath, "results", "", "write full results as JSON to this file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func readTransactionsCSV(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	descIdx, ok := columns["description"]
	if !ok {
		return nil, fmt.Errorf("CSV is missing a description column")
	}
	amountIdx, ok := columns["amount"]
	if !ok {
		return nil, fmt.Errorf("CSV is missing an amount column")
	}

	cell := func(row []string, idx int, ok bool) string {
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	merchantIdx, hasMerchant := columns["merchant"]
	mccIdx, hasMCC := columns["mcc"]

	txns := make([]model.Transaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		amount, err := strconv.ParseFloat(cell(row, amountIdx, true), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+2, cell(row, amountIdx, true))
		}
		txns = append(txns, model.Transaction{
			Description:  cell(row, descIdx, true),
			MerchantName: cell(row, merchantIdx, hasMerchant),
			MCCCode:      cell(row, mccIdx, hasMCC),
			Amount:       amount,
		})
	}
	return txns, nil
}
