package teamstamp

import (
	"bufio"
	crand "crypto/rand"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
)

// Code alphabet and length of the anti-collusion codes.
const (
	CodeAlphabet = "1234567890abcdefghijklmnopqrstuvwxyz"
	CodeLength   = 8
)

// Password numeral bounds (inclusive).
const (
	minPasswordNumber = 1000
	maxPasswordNumber = 9999
)

// maxCodeAttempts bounds re-rolls when a generated code is already taken.
// With 36^8 combinations this is only reached if the alphabet is exhausted.
const maxCodeAttempts = 1000

// Generator produces passwords and anti-collusion codes.
// It is safe for concurrent use.
type Generator struct {
	adjectives []string
	nouns      []string

	mu  sync.Mutex
	rng *rand.Rand
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed makes the generator deterministic. Intended for tests.
func WithSeed(seed [32]byte) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewChaCha8(seed))
	}
}

// NewGenerator creates a Generator drawing words from the given lists.
// Blank entries are ignored; an empty list is a configuration error.
func NewGenerator(adjectives, nouns []string, opts ...GeneratorOption) (*Generator, error) {
	adjs := cleanWords(adjectives)
	if len(adjs) == 0 {
		return nil, fmt.Errorf("%w: %w: adjectives", ErrConfiguration, ErrEmptyWordList)
	}
	ns := cleanWords(nouns)
	if len(ns) == 0 {
		return nil, fmt.Errorf("%w: %w: nouns", ErrConfiguration, ErrEmptyWordList)
	}

	g := &Generator{adjectives: adjs, nouns: ns}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			return nil, fmt.Errorf("%w: seeding generator: %v", ErrConfiguration, err)
		}
		g.rng = rand.New(rand.NewChaCha8(seed))
	}
	return g, nil
}

// WordCounts returns the number of adjectives and nouns in use.
func (g *Generator) WordCounts() (adjectives, nouns int) {
	return len(g.adjectives), len(g.nouns)
}

// GeneratePasswords returns n passwords of the form adjective-noun-NNNN.
// Duplicates across teams are possible and accepted.
func (g *Generator) GeneratePasswords(n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeamCount, n)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	passwords := make([]string, n)
	for i := range passwords {
		adj := g.adjectives[g.rng.IntN(len(g.adjectives))]
		noun := g.nouns[g.rng.IntN(len(g.nouns))]
		num := minPasswordNumber + g.rng.IntN(maxPasswordNumber-minPasswordNumber+1)
		passwords[i] = fmt.Sprintf("%s-%s-%d", adj, noun, num)
	}
	return passwords, nil
}

// GenerateCodes returns n distinct codes of CodeLength characters drawn from
// CodeAlphabet.
func (g *Generator) GenerateCodes(n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeamCount, n)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]bool, n)

	codes := make([]string, n)
	for i := range codes {
		code, err := g.uniqueCode(seen)
		if err != nil {
			return nil, err
		}
		seen[code] = true
		codes[i] = code
	}
	return codes, nil
}

// uniqueCode draws codes until one is not in seen. Caller holds g.mu.
func (g *Generator) uniqueCode(seen map[string]bool) (string, error) {
	buf := make([]byte, CodeLength)
	for range maxCodeAttempts {
		for j := range buf {
			buf[j] = CodeAlphabet[g.rng.IntN(len(CodeAlphabet))]
		}
		if code := string(buf); !seen[code] {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not draw a unique code after %d attempts", ErrConfiguration, maxCodeAttempts)
}

// NewTable generates n recipients numbered 1..n.
func (g *Generator) NewTable(n int) (CredentialTable, error) {
	passwords, err := g.GeneratePasswords(n)
	if err != nil {
		return nil, err
	}
	codes, err := g.GenerateCodes(n)
	if err != nil {
		return nil, err
	}

	table := make(CredentialTable, n)
	for i := range table {
		table[i] = Recipient{ID: i + 1, Secret: passwords[i], Code: codes[i]}
	}
	return table, nil
}

// ReadWordList parses a newline-delimited word list.
// Surrounding whitespace is trimmed and blank lines are skipped.
func ReadWordList(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading word list: %v", ErrConfiguration, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, ErrEmptyWordList)
	}
	return words, nil
}

// LoadWordList reads a word list file.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided word list
	if err != nil {
		return nil, fmt.Errorf("%w: opening word list: %v", ErrConfiguration, err)
	}
	defer f.Close()

	words, err := ReadWordList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

func cleanWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
