// Package embedding implements the deterministic feature-hashing embedder shared by
// the write path (clause indexing) and the read path (clause search).
package embedding

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	DefaultDim = 384

	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Embed hashes text into a dim-length L2-normalized vector. Each UTF-16 code unit
// advances a running FNV-1a seed; the seed modulo dim selects the bucket that is
// incremented. Empty text yields the zero vector.
func Embed(text string, dim int) []float64 {
	if dim <= 0 {
		dim = DefaultDim
	}
	vec := make([]float64, dim)
	seed := fnvOffset32
	for _, cu := range utf16.Encode([]rune(text)) {
		seed ^= uint32(cu)
		seed *= fnvPrime32
		vec[seed%uint32(dim)] += 1
	}
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Float32 converts a vector for storage backends that keep single precision.
func Float32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// VectorLiteral renders vec in the textual vector form accepted by pgvector:
// "[x1,x2,...]" with six fractional digits per element.
func VectorLiteral(vec []float64) string {
	var b strings.Builder
	b.Grow(len(vec)*10 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
	}
	b.WriteByte(']')
	return b.String()
}
