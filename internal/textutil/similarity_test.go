package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b *Fingerprint
		want func(float64) bool
	}{
		{"nil operand", nil, NewFingerprint("fresh bread daily"), func(v float64) bool { return v == 0 }},
		{"identical", NewFingerprint("Sourdough starter tips"), NewFingerprint("sourdough STARTER tips"), func(v float64) bool { return math.Abs(v-1) < 1e-9 }},
		{"disjoint", NewFingerprint("croissant butter"), NewFingerprint("espresso machine"), func(v float64) bool { return v == 0 }},
		{"partial", NewFingerprint("weekend bread sale"), NewFingerprint("weekday bread offer"), func(v float64) bool { return v > 0 && v < 1 }},
		{"zero norm", &Fingerprint{tokens: map[string]float64{}}, NewFingerprint("bread"), func(v float64) bool { return v == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if !tt.want(got) {
				t.Errorf("CosineSimilarity() = %v", got)
			}
			if back := CosineSimilarity(tt.b, tt.a); back != got {
				t.Errorf("not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestFingerprintNorm(t *testing.T) {
	fp := NewFingerprint("bread bread oven")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 1e-9 {
		t.Errorf("norm = %v, want sqrt(5)", fp.norm)
	}
	if fp.TokenCount() != 2 {
		t.Errorf("TokenCount = %d, want 2", fp.TokenCount())
	}
	if NewFingerprint("a to in") != nil {
		t.Error("expected nil for short tokens only")
	}
}

func TestTokenizeFoldsDiacritics(t *testing.T) {
	got := Tokenize("Čerstvý chléb, každé ráno!")
	want := []string{"cerstvy", "chleb", "kazde", "rano"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestVectorIsDeterministicUnitLength(t *testing.T) {
	a := NewFingerprint("spring menu launch event").Vector(64)
	b := NewFingerprint("spring menu launch event").Vector(64)
	if CosineVectors(a, b) < 0.999999 {
		t.Fatalf("expected identical vectors, cosine=%v", CosineVectors(a, b))
	}
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("vector not unit length: %v", sum)
	}
	var empty *Fingerprint
	if got := empty.Vector(8); len(got) != 8 {
		t.Fatalf("nil fingerprint vector length = %d", len(got))
	}
}

func TestCosineVectorsMismatch(t *testing.T) {
	if CosineVectors([]float64{1, 0}, []float64{1}) != 0 {
		t.Error("expected 0 for mismatched lengths")
	}
	if CosineVectors([]float64{0, 0}, []float64{1, 0}) != 0 {
		t.Error("expected 0 for zero vector")
	}
}

func TestMostSimilar(t *testing.T) {
	idx, score := MostSimilar("Easter bread recipes", []string{"coffee pairing", "easter bread ideas", "staff spotlight"})
	if idx != 1 || score <= 0 {
		t.Fatalf("MostSimilar = %d, %v", idx, score)
	}
	if idx, _ := MostSimilar("unrelated", []string{"coffee"}); idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
}

func TestTruncateAndHashtags(t *testing.T) {
	if got := Truncate("Příliš žluťoučký kůň", 10); got != "Příliš..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := CollapseWhitespace("  a \n\t b  "); got != "a b" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
	tags := NormalizeHashtags([]string{"Bakery", "#bakery", " fresh bread ", ""})
	if len(tags) != 2 || tags[0] != "#bakery" || tags[1] != "#freshbread" {
		t.Errorf("NormalizeHashtags = %v", tags)
	}
}
