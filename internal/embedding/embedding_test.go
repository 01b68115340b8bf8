package embedding

import (
	"math"
	"testing"
)

func TestEmbedSingleCharacter(t *testing.T) {
	vec := Embed("a", 384)
	if len(vec) != 384 {
		t.Fatalf("len: want=384 got=%d", len(vec))
	}
	// FNV-1a("a") = 0xE40C292C; 3826002220 % 384 = 172.
	for i, v := range vec {
		want := 0.0
		if i == 172 {
			want = 1
		}
		if v != want {
			t.Fatalf("vec[%d]: want=%v got=%v", i, want, v)
		}
	}
}

func TestEmbedEmptyIsZero(t *testing.T) {
	for i, v := range Embed("", 16) {
		if v != 0 {
			t.Fatalf("vec[%d]: want=0 got=%v", i, v)
		}
	}
}

func TestEmbedDeterministicAndNormalized(t *testing.T) {
	text := "The contractor shall deliver monthly status reports."
	a := Embed(text, 384)
	b := Embed(text, 384)
	var sum float64
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vec[%d] differs between calls: %v vs %v", i, a[i], b[i])
		}
		sum += a[i] * a[i]
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-9 {
		t.Fatalf("norm: want=1 got=%v", math.Sqrt(sum))
	}
}

func TestEmbedAstralCountsTwoCodeUnits(t *testing.T) {
	var nonZero int
	for _, v := range Embed("😀", 1024) {
		if v != 0 {
			nonZero++
		}
	}
	if nonZero < 1 || nonZero > 2 {
		t.Fatalf("nonzero buckets: want 1..2 got=%d", nonZero)
	}
	var sum float64
	for _, v := range Embed("😀", 1) {
		sum += v
	}
	if sum != 1 {
		t.Fatalf("dim=1: want=1 got=%v", sum)
	}
}

func TestVectorLiteral(t *testing.T) {
	got := VectorLiteral([]float64{0.5, -0.25, 1})
	want := "[0.500000,-0.250000,1.000000]"
	if got != want {
		t.Fatalf("literal: want=%q got=%q", want, got)
	}
	if got := VectorLiteral(nil); got != "[]" {
		t.Fatalf("empty literal: want=%q got=%q", "[]", got)
	}
}
