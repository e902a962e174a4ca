// Package normalize turns raw transaction text into a stable, canonical form:
// noise-stripped description, lexical tokens, an alias-resolved merchant name
// with a deterministic identity hash, and one-way digests of the sensitive
// fields. Normalization is a pure function of its input plus the static
// tables in this package.
package normalize

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// merchantIDLength is the hex-prefix length of the merchant identity hash.
const merchantIDLength = 16

// noisePatterns are applied in order before tokenization. Each match is
// deleted from the text.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`#\d+`),          // Transaction IDs like #12345
	regexp.MustCompile(`\d{6,}`),        // Long numeric runs
	regexp.MustCompile(`[A-Z]{2}\d{3,}`), // Location codes like CA123
	regexp.MustCompile(`\*+`),           // Asterisk-delimited fragments
	regexp.MustCompile(`(?i)REF:\w+`),   // Reference codes
}

var tokenPattern = regexp.MustCompile(`[A-Za-z]+`)

// Normalizer canonicalizes transaction text. The zero value is not usable;
// construct with New.
type Normalizer struct {
	aliases    map[string]string // variant spelling -> canonical name
	aliasOrder []string          // longest-first so UBER EATS wins over UBER
}

// New creates a Normalizer with the built-in merchant alias table.
func New() *Normalizer {
	n := &Normalizer{aliases: make(map[string]string)}
	for canonical, variants := range merchantAliases {
		for _, v := range variants {
			n.aliases[v] = canonical
		}
	}
	for v := range n.aliases {
		n.aliasOrder = append(n.aliasOrder, v)
	}
	sort.Slice(n.aliasOrder, func(i, j int) bool {
		if len(n.aliasOrder[i]) != len(n.aliasOrder[j]) {
			return len(n.aliasOrder[i]) > len(n.aliasOrder[j])
		}
		return n.aliasOrder[i] < n.aliasOrder[j]
	})
	return n
}

// Normalize produces the canonical form of a transaction. It never fails:
// every fallback (missing merchant, no alias match) is silent.
func (n *Normalizer) Normalize(txn model.Transaction) model.NormalizedTransaction {
	cleaned := removeNoise(txn.Description)
	tokens := tokenize(cleaned)
	normalizedText := strings.Join(tokens, " ")

	merchant := strings.TrimSpace(txn.MerchantName)
	if merchant == "" {
		merchant = deriveMerchant(tokens)
	} else {
		merchant = normalizeText(merchant)
	}

	canonical := n.canonicalize(merchant)

	return model.NormalizedTransaction{
		CanonicalMerchant: canonical,
		MerchantID:        MerchantID(canonical),
		NormalizedText:    normalizedText,
		Tokens:            tokens,
		EncryptedAmount:   digestAmount(txn.Amount),
		EncryptedMCC:      digestMCC(txn.MCCCode),
		Metadata: model.TransactionMetadata{
			Location:        extractLocation(txn.Description),
			TransactionType: transactionType(txn.Description),
		},
	}
}

// MerchantID derives the deterministic 16-hex-char identity for a canonical
// merchant name. Same name, same id, always. This is a lookup key, not a
// cryptographic secret.
func MerchantID(canonicalMerchant string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(canonicalMerchant)))
	return fmt.Sprintf("%x", sum)[:merchantIDLength]
}

// canonicalize maps variant merchant spellings onto one canonical name.
// Unmapped merchants pass through unchanged.
func (n *Normalizer) canonicalize(merchant string) string {
	upper := strings.ToUpper(strings.TrimSpace(merchant))
	for _, variant := range n.aliasOrder {
		if strings.Contains(upper, variant) {
			return n.aliases[variant]
		}
	}
	return upper
}

func removeNoise(text string) string {
	cleaned := text
	for _, p := range noisePatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// tokenize splits cleaned text into upper-cased lexical tokens, dropping
// stopwords and reducing plural forms. There is no external linguistic model
// in play; the suffix reduction is a silent best-effort step.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		upper := strings.ToUpper(t)
		if stopwords[upper] {
			continue
		}
		tokens = append(tokens, lemma(upper))
	}
	return tokens
}

// normalizeText upper-cases and strips non-alphanumeric characters.
func normalizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// deriveMerchant falls back to the first meaningful tokens when the caller
// supplied no merchant name.
func deriveMerchant(tokens []string) string {
	meaningful := make([]string, 0, 3)
	for _, t := range tokens {
		if len(t) > 2 {
			meaningful = append(meaningful, t)
			if len(meaningful) == 3 {
				break
			}
		}
	}
	if len(meaningful) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(meaningful, " ")
}

func digestAmount(amount float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("AMT_%.2f", amount)))
	return fmt.Sprintf("%x", sum)[:merchantIDLength]
}

func digestMCC(code string) string {
	if code == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("MCC_" + code))
	return fmt.Sprintf("%x", sum)[:merchantIDLength]
}

var statePattern = regexp.MustCompile(`\b([A-Z]{2})\b`)

// commonStates limits location extraction to codes that are very likely US
// states rather than arbitrary two-letter fragments.
var commonStates = map[string]bool{
	"CA": true, "NY": true, "TX": true, "FL": true, "IL": true,
	"PA": true, "OH": true, "GA": true, "NC": true, "MI": true,
	"WA": true, "AZ": true, "MA": true, "CO": true, "OR": true,
}

func extractLocation(text string) string {
	for _, m := range statePattern.FindAllStringSubmatch(text, -1) {
		if commonStates[m[1]] {
			return m[1]
		}
	}
	return ""
}

func transactionType(text string) string {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "REFUND") || strings.Contains(upper, "RETURN"):
		return "refund"
	case strings.Contains(upper, "SUBSCRIPTION") || strings.Contains(upper, "RECURRING"):
		return "subscription"
	default:
		return "purchase"
	}
}
