package normalize

import "strings"

// merchantAliases maps canonical merchant names to their variant spellings as
// they appear on card statements.
var merchantAliases = map[string][]string{
	"STARBUCKS": {"STARBUCKS", "SBX", "SBUX", "STARBUCK"},
	"MCDONALDS": {"MCDONALDS", "MCD", "MCDONALD"},
	"WALMART":   {"WALMART", "WAL-MART", "WMART"},
	"TARGET":    {"TARGET", "TGT"},
	"AMAZON":    {"AMAZON", "AMZN", "AMZ"},
	"SHELL":     {"SHELL", "SHELL OIL"},
	"CHEVRON":   {"CHEVRON", "CHEV"},
	"UBER":      {"UBER", "UBER TRIP", "UBER EATS"},
	"LYFT":      {"LYFT", "LYFT RIDE"},
}

// stopwords are dropped during tokenization. Short functional words only;
// merchant-bearing tokens must survive.
var stopwords = map[string]bool{
	"A": true, "AN": true, "AND": true, "AT": true, "BY": true,
	"FOR": true, "FROM": true, "IN": true, "OF": true, "ON": true,
	"OR": true, "THE": true, "TO": true, "WITH": true,
}

// lemma reduces a token to a base lexical form with conservative suffix
// rules. It intentionally does far less than a full lemmatizer: the goal is
// stable matching of plural and inflected merchant words, never linguistic
// completeness.
func lemma(token string) string {
	switch {
	case len(token) > 4 && strings.HasSuffix(token, "IES"):
		return token[:len(token)-3] + "Y"
	case len(token) > 4 && strings.HasSuffix(token, "SSES"):
		return token[:len(token)-2]
	case len(token) > 3 && strings.HasSuffix(token, "S") &&
		!strings.HasSuffix(token, "SS") && !strings.HasSuffix(token, "US"):
		return token[:len(token)-1]
	default:
		return token
	}
}
