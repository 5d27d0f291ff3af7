package textutil

import (
	"hash/fnv"
	"math"
	"strings"
)

// minTokenLen drops short function words ("a", "to", "in") from fingerprints.
const minTokenLen = 3

// Fingerprint is a bag-of-words term-frequency vector over a post body.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint returns nil when text has no tokens of useful length.
func NewFingerprint(text string) *Fingerprint {
	counts := make(map[string]float64)
	for _, token := range Tokenize(text) {
		counts[token]++
	}
	if len(counts) == 0 {
		return nil
	}
	var sumSquares float64
	for _, count := range counts {
		sumSquares += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(sumSquares)}
}

// Tokenize folds diacritics and case, splits on anything that is not an
// ASCII letter or digit, and keeps tokens of at least three characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(FoldDiacritics(text)), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	terms := fields[:0]
	for _, field := range fields {
		if len(field) >= minTokenLen {
			terms = append(terms, field)
		}
	}
	return terms
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// Vector projects the fingerprint onto dims buckets with the hashing trick
// and scales the result to unit length. Equal texts give equal vectors; a
// nil fingerprint gives the zero vector.
func (f *Fingerprint) Vector(dims int) []float64 {
	if dims <= 0 {
		return nil
	}
	vec := make([]float64, dims)
	if f == nil {
		return vec
	}
	for token, count := range f.tokens {
		bucket, sign := hashToken(token, dims)
		vec[bucket] += sign * count
	}
	return normalize(vec)
}

// hashToken picks a bucket from the high bits of the token hash and a sign
// from the low bit.
func hashToken(token string, dims int) (int, float64) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()
	sign := 1.0
	if sum&1 == 1 {
		sign = -1
	}
	return int(sum>>1) % dims, sign
}

func normalize(vec []float64) []float64 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
