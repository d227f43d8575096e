// Package vectors provides the float32 vector operations used for competence
// matching: dot products, magnitudes, cosine similarity, normalization, and
// weighted blending.
package vectors

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Dot computes the dot product of two vectors. Returns 0 if the vectors have
// different lengths.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Sqrt(float64(vek32.Dot(v, v)))
}

// CosineSimilarity computes cosine similarity using pre-computed magnitudes.
// Returns 0 if either magnitude is zero.
func CosineSimilarity(a, b []float32, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 0
	}
	return float64(Dot(a, b)) / (magA * magB)
}

// Cosine computes cosine similarity, computing both magnitudes. Prefer
// CosineSimilarity with cached magnitudes on hot paths.
func Cosine(a, b []float32) float64 {
	return CosineSimilarity(a, b, Magnitude(a), Magnitude(b))
}

// Normalize scales v to unit length in place and returns the original
// magnitude. A zero vector is left untouched.
func Normalize(v []float32) float64 {
	mag := Magnitude(v)
	if mag == 0 {
		return 0
	}
	vek32.MulNumber_Inplace(v, float32(1.0/mag))
	return mag
}

// NormalizeCopy returns a unit-length copy of v without modifying the input.
// A zero vector is returned as an unchanged copy.
func NormalizeCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	Normalize(out)
	return out
}

// Sum returns the element-wise sum of a and b as a new vector. Returns nil if
// the lengths differ.
func Sum(a, b []float32) []float32 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float32, len(a))
	copy(out, a)
	vek32.Add_Inplace(out, b)
	return out
}

// Blend returns wa*a + wb*b as a new vector. Returns nil if the lengths
// differ.
func Blend(a, b []float32, wa, wb float64) []float32 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float32, len(a))
	copy(out, a)
	vek32.MulNumber_Inplace(out, float32(wa))

	scaled := make([]float32, len(b))
	copy(scaled, b)
	vek32.MulNumber_Inplace(scaled, float32(wb))

	vek32.Add_Inplace(out, scaled)
	return out
}

// Lerp moves v toward target by rate and stores the result in v. Used for
// online position drift after a completed task.
func Lerp(v, target []float32, rate float64) {
	if len(v) != len(target) || rate == 0 {
		return
	}
	r := float32(rate)
	for i := range v {
		v[i] += r * (target[i] - v[i])
	}
}

// IsUnit reports whether v has unit length within tolerance.
func IsUnit(v []float32, tolerance float64) bool {
	return math.Abs(Magnitude(v)-1.0) <= tolerance
}
