// pkg/refdata/resolver.go
package refdata

import (
	"errors"
	"sort"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/normalize"
)

// DefaultThreshold is the minimum similarity score (0-100) at which a fuzzy
// correction is accepted. Chosen to fix single-character typos in short
// codes without collapsing distinct codes onto each other; treat as policy,
// not a derived constant.
const DefaultThreshold = 85

// Scorer computes a similarity score between two strings on a 0-100 scale.
type Scorer func(a, b string) int

// KeySet is a read-only set of canonical uppercase reference keys.
type KeySet struct {
	keys   map[string]struct{}
	sorted []string
}

// NewKeySet builds a key set from raw values, normalizing each to the
// canonical trimmed-uppercase form and dropping empties.
func NewKeySet(values []string) *KeySet {
	ks := &KeySet{keys: make(map[string]struct{}, len(values))}
	for _, v := range values {
		k := normalize.Key(v)
		if k == "" {
			continue
		}
		if _, seen := ks.keys[k]; !seen {
			ks.keys[k] = struct{}{}
			ks.sorted = append(ks.sorted, k)
		}
	}
	sort.Strings(ks.sorted)
	return ks
}

// Len returns the number of keys. A nil set has length zero.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keys)
}

// Has reports direct membership.
func (ks *KeySet) Has(key string) bool {
	if ks == nil {
		return false
	}
	_, ok := ks.keys[key]
	return ok
}

// Resolver corrects foreign-key-like fields against known key sets using
// weighted-ratio fuzzy matching.
type Resolver struct {
	logger    *zap.Logger
	threshold int
	scorer    Scorer
}

// NewResolver creates a resolver with the default WRatio scorer.
func NewResolver(logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Resolver{
		logger:    logger.Named("resolver"),
		threshold: DefaultThreshold,
		scorer:    fuzzy.WRatio,
	}, nil
}

// WithThreshold overrides the acceptance threshold.
func (r *Resolver) WithThreshold(threshold int) *Resolver {
	r.threshold = threshold
	return r
}

// WithScorer overrides the similarity scorer.
func (r *Resolver) WithScorer(scorer Scorer) *Resolver {
	r.scorer = scorer
	return r
}

// Resolve returns the best-matching member of keys when its similarity to
// value scores at or above the threshold, and value unchanged otherwise.
// An empty or nil key set fails open: the input passes through untouched so
// reference-data unavailability never blocks the pipeline.
func (r *Resolver) Resolve(value string, keys *KeySet) string {
	if keys.Len() == 0 {
		return value
	}
	if keys.Has(value) {
		return value
	}

	bestKey := ""
	bestScore := -1
	for _, k := range keys.sorted {
		if score := r.scorer(value, k); score > bestScore {
			bestScore = score
			bestKey = k
		}
	}
	if bestScore >= r.threshold {
		r.logger.Debug("fuzzy corrected reference key",
			zap.String("from", value),
			zap.String("to", bestKey),
			zap.Int("score", bestScore))
		return bestKey
	}
	return value
}

// FixFlightPrefix checks the airline-code prefix of a flight key. The first
// two alphanumeric characters are uppercased and checked for direct
// membership in the airline key set; only when absent is fuzzy correction
// attempted on the prefix. The suffix is always kept verbatim.
func (r *Resolver) FixFlightPrefix(flightKey string, airlineKeys *KeySet) string {
	if airlineKeys.Len() == 0 {
		return flightKey
	}

	prefix, rest := splitFlightKey(flightKey)
	if len(prefix) < 2 {
		return flightKey
	}
	if airlineKeys.Has(prefix) {
		return prefix + rest
	}

	corrected := r.Resolve(prefix, airlineKeys)
	if corrected == prefix {
		// No correction found. Return the key as given rather than the
		// rebuilt prefix, which would strip casing and separators.
		return flightKey
	}
	return corrected + rest
}

// splitFlightKey extracts the first two alphanumeric characters, uppercased,
// and returns them with the remainder of the key.
func splitFlightKey(flightKey string) (string, string) {
	prefix := make([]rune, 0, 2)
	runes := []rune(flightKey)
	i := 0
	for ; i < len(runes) && len(prefix) < 2; i++ {
		if unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) {
			prefix = append(prefix, unicode.ToUpper(runes[i]))
		}
	}
	return string(prefix), string(runes[i:])
}
