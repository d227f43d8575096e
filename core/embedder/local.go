package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/adalundhe/loom/core/vectors"
)

// Feature mix for the local embedder. Character n-grams capture surface
// similarity, tokens capture vocabulary overlap, and the simhash band keeps
// near-duplicate descriptions close together.
const (
	ngramWeight   = 0.4
	tokenWeight   = 0.35
	simhashWeight = 0.25

	simhashBits = 64
)

// Local is a deterministic, offline embedder built from hashed n-gram, token,
// and simhash features. Identical text always produces an identical unit
// vector.
type Local struct {
	dimension int
}

// NewLocal returns a Local embedder with the given dimension. Non-positive
// dimensions fall back to DefaultDimension.
func NewLocal(dimension int) *Local {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Local{dimension: dimension}
}

func (l *Local) Dimension() int {
	return l.dimension
}

func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	return l.embed(text), nil
}

func (l *Local) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = l.embed(text)
	}
	return out, nil
}

func (l *Local) embed(text string) []float32 {
	vec := make([]float32, l.dimension)

	l.addNgrams(vec, ngrams(text, 3), ngramWeight*0.6)
	l.addNgrams(vec, ngrams(text, 2), ngramWeight*0.4)
	l.addTokens(vec, tokenize(text))
	l.addSimhash(vec, text)

	vectors.Normalize(vec)
	return vec
}

func (l *Local) addNgrams(vec []float32, grams []string, weight float64) {
	if len(grams) == 0 {
		return
	}

	w := float32(weight / math.Sqrt(float64(len(grams))))
	for _, g := range grams {
		l.scatter(vec, fnvHash(g), 4, w)
	}
}

func (l *Local) addTokens(vec []float32, tokens []string) {
	if len(tokens) == 0 {
		return
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	var norm float64
	for _, count := range tf {
		norm += float64(count * count)
	}
	norm = math.Sqrt(norm)

	for tok, count := range tf {
		w := float32(tokenWeight * float64(count) / norm)
		l.scatter(vec, fnvHash(tok), 8, w)
	}
}

func (l *Local) addSimhash(vec []float32, text string) {
	sig := simhash(text)

	w := float32(simhashWeight / 8)
	for i := range simhashBits {
		val := float32(-1)
		if (sig>>i)&1 == 1 {
			val = 1
		}

		start := (i * l.dimension) / simhashBits
		for j := range 16 {
			vec[(start+j)%l.dimension] += w * val
		}
	}
}

// scatter spreads a hashed feature across count dimensions with hash-derived
// signs, so distinct features rarely collide everywhere.
func (l *Local) scatter(vec []float32, seed uint64, count int, weight float32) {
	state := seed
	for i := range count {
		state = state*6364136223846793005 + 1442695040888963407
		idx := int(state % uint64(l.dimension))

		sign := float32(-1)
		if (seed>>i)&1 == 1 {
			sign = 1
		}
		vec[idx] += weight * sign
	}
}

func simhash(text string) uint64 {
	weights := make([]int, simhashBits)
	for _, g := range ngrams(text, 3) {
		hash := fnvHash(g)
		for i := range simhashBits {
			if (hash>>i)&1 == 1 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}

	var sig uint64
	for i := range simhashBits {
		if weights[i] > 0 {
			sig |= 1 << i
		}
	}
	return sig
}

func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

func ngrams(text string, n int) []string {
	text = strings.ToLower(text)
	if len(text) < n {
		return nil
	}

	out := make([]string, 0, len(text)-n+1)
	for i := 0; i+n <= len(text); i++ {
		out = append(out, text[i:i+n])
	}
	return out
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
