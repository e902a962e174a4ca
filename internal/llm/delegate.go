package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

const systemPrompt = "You are an expert financial transaction classifier. " +
	"Respond ONLY with the requested fields, one per line, in the exact KEY: value format. " +
	"Do not add commentary before or after the fields."

// Delegate is the production reasoning delegate backed by an LLM provider.
type Delegate struct {
	client    Client
	logger    *slog.Logger
	timeout   time.Duration
	retryOpts common.RetryOptions
}

// NewDelegate wraps a provider client with retry and timeout behavior.
func NewDelegate(cfg Config, logger *slog.Logger) (*Delegate, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Delegate{
		client:    client,
		logger:    logger,
		timeout:   timeout,
		retryOpts: retryOpts,
	}, nil
}

// MatchCustomCategory asks the delegate whether the transaction fits one of
// the user-defined categories. A clean "no" is returned with Matched=false
// and no error.
func (d *Delegate) MatchCustomCategory(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error) {
	prompt := fmt.Sprintf(`The user has defined these custom transaction categories:

%s
Transaction:
- Merchant: %s
- Description: %s

Decide whether this transaction clearly belongs to one of the custom categories above.

Respond in this exact format:
MATCH: [YES/NO]
CATEGORY: [category name, only if MATCH is YES]
SUBCATEGORY: [subcategory name, only if MATCH is YES]
REASONING: [one or two sentences]`, taxonomyText(taxonomy), merchant, description)

	return d.complete(ctx, prompt, true)
}

// ClassifyWithTaxonomy asks the delegate for a best-fit category from the
// supplied taxonomy. This is the final fallback tier; it always returns a
// category on success.
func (d *Delegate) ClassifyWithTaxonomy(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error) {
	prompt := fmt.Sprintf(`Classify this financial transaction into the taxonomy below.

Valid categories:

%s
Transaction:
- Merchant: %s
- Description: %s

Pick the single best-fitting category and subcategory. Use "Other" / "General"
only when nothing else fits.

Respond in this exact format:
CATEGORY: [category name]
SUBCATEGORY: [subcategory name]
REASONING: [one or two sentences]`, taxonomyText(taxonomy), merchant, description)

	return d.complete(ctx, prompt, false)
}

func (d *Delegate) complete(ctx context.Context, prompt string, requireMatchField bool) (service.DelegateResponse, error) {
	var content string

	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		var callErr error
		content, callErr = d.client.Complete(callCtx, systemPrompt, prompt)
		if errors.Is(callErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", common.ErrDelegateTimeout, callErr)
		}
		return callErr
	}, d.retryOpts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", common.ErrDelegateTimeout, err)
		}
		d.logger.Warn("reasoning delegate call failed", "error", err)
		return service.DelegateResponse{}, err
	}

	resp, err := ParseDelegateResponse(content, requireMatchField)
	if err != nil {
		d.logger.Warn("reasoning delegate returned malformed output", "error", err)
		return service.DelegateResponse{}, err
	}
	return resp, nil
}

// taxonomyText renders a taxonomy for inclusion in a prompt, categories
// sorted for deterministic prompts.
func taxonomyText(taxonomy map[string][]string) string {
	categories := make([]string, 0, len(taxonomy))
	for c := range taxonomy {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
		for _, sub := range taxonomy[c] {
			fmt.Fprintf(&b, "  - %s\n", sub)
		}
	}
	return b.String()
}
