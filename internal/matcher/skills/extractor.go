// Package skills extracts candidate skill keywords from resume text.
//
// Extraction is frequency based: tokens are counted after dropping single
// characters, stopwords and numbers, curated vocabulary terms found in the
// text are taken first (in vocabulary order), and the remaining slots are
// filled with the most frequent tokens. The result is deterministic for a
// given input and configuration.
package skills

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/tokenizer"
)

// numberRe matches normalized tokens that coerce to a number: plain digits,
// digits with an exponent, and 0x/0b/0o integer literals.
var numberRe = regexp.MustCompile(`^(?:[0-9]+(?:e[0-9]+)?|0x[0-9a-f]+|0b[01]+|0o[0-7]+)$`)

// Extractor selects skill tokens from text. The zero value is not usable;
// construct with New.
type Extractor struct {
	vocabulary []string
	stopwords  map[string]struct{}
	maxSkills  int
	// fingerprint identifies the tables and slot count; see Fingerprint.
	fingerprint string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithVocabulary replaces the curated vocabulary. Order is priority order.
func WithVocabulary(terms []string) Option {
	return func(e *Extractor) {
		e.vocabulary = lowerAll(terms)
	}
}

// WithStopwords replaces the stopword table.
func WithStopwords(words []string) Option {
	return func(e *Extractor) {
		e.stopwords = toSet(lowerAll(words))
	}
}

// WithMaxSkills sets the number of slots. Values below 1 are ignored.
func WithMaxSkills(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxSkills = n
		}
	}
}

// New builds an Extractor from the default tables and the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		vocabulary: DefaultVocabulary,
		stopwords:  toSet(DefaultStopwords),
		maxSkills:  DefaultMaxSkills,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fingerprint = e.computeFingerprint()
	return e
}

var defaultExtractor = New()

// Extract runs the default extractor over text.
func Extract(text string) []string {
	return defaultExtractor.Extract(text)
}

// Fingerprint returns a short hash of the vocabulary (in order), the
// stopwords (as a set) and the slot count. Extractors with equal
// fingerprints produce equal output for every text.
func (e *Extractor) Fingerprint() string {
	return e.fingerprint
}

func (e *Extractor) computeFingerprint() string {
	stop := make([]string, 0, len(e.stopwords))
	for w := range e.stopwords {
		stop = append(stop, w)
	}
	sort.Strings(stop)

	h := sha256.New()
	h.Write([]byte("max=" + strconv.Itoa(e.maxSkills) + "\x00vocab"))
	for _, term := range e.vocabulary {
		h.Write([]byte("\x00" + term))
	}
	h.Write([]byte("\x00\x00stop"))
	for _, w := range stop {
		h.Write([]byte("\x00" + w))
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// MaxSkills returns the configured slot count.
func (e *Extractor) MaxSkills() int {
	return e.maxSkills
}

// Extract returns at most MaxSkills distinct lowercase tokens from text,
// vocabulary matches first, then by descending frequency with ties in order
// of first appearance. Empty input yields an empty, non-nil slice.
func (e *Extractor) Extract(text string) []string {
	freq, order := e.countTokens(tokenizer.Tokenize(text))
	if len(order) == 0 {
		return []string{}
	}

	candidates := make([]string, len(order))
	copy(candidates, order)
	sort.SliceStable(candidates, func(i, j int) bool {
		return freq[candidates[i]] > freq[candidates[j]]
	})

	chosen := make([]string, 0, e.maxSkills)
	seen := make(map[string]struct{}, e.maxSkills)
	add := func(term string) {
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		chosen = append(chosen, term)
	}

	for _, term := range e.vocabulary {
		if freq[term] > 0 {
			add(term)
		}
	}
	for _, term := range candidates {
		if len(chosen) >= e.maxSkills {
			break
		}
		add(term)
	}

	if len(chosen) > e.maxSkills {
		chosen = chosen[:e.maxSkills]
	}
	return chosen
}

// Frequencies returns the token counts Extract ranks, keyed by token.
func (e *Extractor) Frequencies(text string) map[string]int {
	freq, _ := e.countTokens(tokenizer.Tokenize(text))
	return freq
}

// countTokens returns per-token counts of the eligible tokens and the
// distinct tokens in first-appearance order.
func (e *Extractor) countTokens(tokens []string) (map[string]int, []string) {
	freq := make(map[string]int)
	order := make([]string, 0)
	for _, tok := range tokens {
		if !e.eligible(tok) {
			continue
		}
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	return freq, order
}

func (e *Extractor) eligible(tok string) bool {
	if len(tok) <= 1 {
		return false
	}
	if _, stop := e.stopwords[tok]; stop {
		return false
	}
	return !numberRe.MatchString(tok)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
