package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func classifyCmd() *cobra.Command {
	var (
		description string
		merchant    string
		mccCode     string
		amount      float64
		output      string
		showAudit   bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a single transaction",
		Long: `Classify runs one transaction through the full pipeline and prints the
decision, the governance verdict, and optionally the audit trail.`,
		Example: `  ledgerlens classify --description "STARBUCKS #1234 SEATTLE WA" --amount 6.50
  ledgerlens classify -d "AMZN Mktp US*2K3L" -a 24.99 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			txn := model.Transaction{
				Description:  description,
				MerchantName: merchant,
				MCCCode:      mccCode,
				Amount:       amount,
			}

			result, err := p.engine.Process(cmd.Context(), txn)
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			return renderResult(os.Stdout, result, output, showAudit)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "raw transaction description (required)")
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "raw merchant name, if known")
	cmd.Flags().StringVar(&mccCode, "mcc", "", "4-digit merchant category code, if known")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "transaction amount (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&showAudit, "audit", false, "include the audit trail in text output")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func renderResult(w io.Writer, result model.Result, format string, showAudit bool) error {
	switch format {
	case "json":
		return printJSON(w, result)
	case "text", "":
		printResultText(w, result, showAudit)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResultText(w io.Writer, result model.Result, showAudit bool) {
	if result.Status == model.StatusError {
		fmt.Fprintf(w, "Status:      %s\n", result.Status)
		fmt.Fprintf(w, "Error:       %s\n", result.Error)
		return
	}

	fmt.Fprintf(w, "Merchant:    %s\n", result.Normalized.CanonicalMerchant)
	fmt.Fprintf(w, "Category:    %s / %s\n", result.Decision.Category, result.Decision.Subcategory)
	fmt.Fprintf(w, "Confidence:  %s\n", result.Governance.FinalConfidence)
	fmt.Fprintf(w, "Method:      %s\n", result.Decision.Method)
	fmt.Fprintf(w, "MCC:         %s (%s)\n", result.Governance.MCCCode, result.Governance.MCCDescription)
	fmt.Fprintf(w, "Validation:  %s\n", result.Governance.Status)
	if len(result.Governance.Flags) > 0 {
		fmt.Fprintf(w, "Flags:       %s\n", strings.Join(result.Governance.Flags, ", "))
	}
	if result.Decision.Reasoning != "" {
		fmt.Fprintf(w, "Reasoning:   %s\n", result.Decision.Reasoning)
	}

	if showAudit {
		fmt.Fprintln(w, "\nAudit trail:")
		for _, entry := range result.AuditTrail {
			fmt.Fprintf(w, "  %s  %-22s %s\n",
				entry.Timestamp.Format("15:04:05.000"), entry.Step, entry.Outputs)
		}
	}
}
