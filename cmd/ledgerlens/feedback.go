package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func feedbackCmd() *cobra.Command {
	var (
		description  string
		merchant     string
		mccCode      string
		amount       float64
		feedbackType string
		category     string
		subcategory  string
		comment      string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record feedback on a transaction's classification",
		Long: `Feedback re-runs the transaction through the pipeline and applies the
given feedback to the result. Corrections are stored as preferences, so the
next similar transaction resolves from your correction instead of the tables.`,
		Example: `  ledgerlens feedback -d "STARBUCKS #1234" -a 6.50 --type approve
  ledgerlens feedback -d "STARBUCKS #1234" -a 6.50 --type correct \
      --category "Food & Dining" --subcategory "Coffee Shop"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ft := model.FeedbackType(feedbackType)
			switch ft {
			case model.FeedbackApprove, model.FeedbackCorrect, model.FeedbackComment:
			default:
				return fmt.Errorf("unknown feedback type %q (want approve, correct, or comment)", feedbackType)
			}

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

			updated, err := p.feedback.Apply(cmd.Context(), result, ft, model.FeedbackPayload{
				Category:    category,
				Subcategory: subcategory,
				Comment:     comment,
			})
			if err != nil {
				return fmt.Errorf("failed to apply feedback: %w", err)
			}

			return renderResult(os.Stdout, updated, output, true)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "raw transaction description (required)")
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "raw merchant name, if known")
	cmd.Flags().StringVar(&mccCode, "mcc", "", "4-digit merchant category code, if known")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "transaction amount (required)")
	cmd.Flags().StringVarP(&feedbackType, "type", "t", "", "feedback type: approve, correct, or comment (required)")
	cmd.Flags().StringVar(&category, "category", "", "corrected category (required for correct)")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "corrected subcategory (required for correct)")
	cmd.Flags().StringVar(&comment, "comment", "", "free-form comment (required for comment)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
