package matching

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Útiles de Escritorio, 2024", "utiles de escritorio 2024"},
		{"  ADQUISICIÓN   DE   NOTEBOOKS  ", "adquisicion de notebooks"},
		{"Sí", "si"},
		{"café-con-leche", "cafe con leche"},
		{"", ""},
		{"...", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSQLTermKeepsAccents(t *testing.T) {
	// Stored text keeps its accents, so the term bound into backend-side
	// similarity comparisons must keep them too.
	cases := []struct {
		in   string
		want string
	}{
		{"Útiles de Escritorio", "útiles de escritorio"},
		{"  ADQUISICIÓN  ", "adquisición"},
		{"resma carta", "resma carta"},
	}
	for _, c := range cases {
		if got := SQLTerm(c.in); got != c.want {
			t.Errorf("SQLTerm(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTokenSetRatioIsOrderInsensitive(t *testing.T) {
	a := TokenSetRatio("notebook hp 14 pulgadas", "hp notebook 14 pulgadas")
	if a != 100 {
		t.Fatalf("expected reordered tokens to score 100, got %d", a)
	}

	b := TokenSetRatio("notebook hp", "servicio de aseo")
	if b > 40 {
		t.Fatalf("expected unrelated strings to score low, got %d", b)
	}

	if TokenSetRatio("", "notebook") != 0 {
		t.Fatal("expected empty input to score 0")
	}
}

func TestTokenSetRatioIgnoresAccents(t *testing.T) {
	got := TokenSetRatio("adquisición de útiles", "ADQUISICION DE UTILES")
	if got != 100 {
		t.Fatalf("expected accent-insensitive match to score 100, got %d", got)
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("laptop", "laptops"); got < 80 {
		t.Fatalf("expected near-identical tokens to score high, got %d", got)
	}
	if got := Ratio("laptop", "impresora"); got > 50 {
		t.Fatalf("expected distant tokens to score low, got %d", got)
	}
	if Ratio("laptop", "") != 0 {
		t.Fatal("expected empty input to score 0")
	}
}
