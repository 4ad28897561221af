package index

import (
	"testing"

	"ai-doc-assistant/pkg/apperror"
)

func TestCompile_Empty(t *testing.T) {
	if got := Compile(nil); got != "" {
		t.Fatalf("nil filter should compile to empty expr, got %q", got)
	}
	if got := Compile(Filter{}); got != "" {
		t.Fatalf("empty filter should compile to empty expr, got %q", got)
	}
}

func TestCompile_ScalarEquality(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"department": "finance"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["department"] == "finance"`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompile_NumericEquality(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": float64(2013)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["year"] == 2013`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompile_Membership(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": []any{float64(2013), float64(2020)}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["year"] in [2013, 2020]`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompile_RangeBounds(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": map[string]any{"gte": float64(2010), "lt": float64(2020)}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["year"] >= 2010 and metadata["year"] < 2020`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompile_MultipleKeysANDedSorted(t *testing.T) {
	f, err := DecodeFilter(map[string]any{
		"year":       map[string]any{"lte": float64(2013)},
		"department": "finance",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["department"] == "finance" and metadata["year"] <= 2013`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompile_EmptyMembershipMatchesNothing(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": []any{}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["year"] == "" and metadata["year"] != ""`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeFilter_UnknownOperatorIgnored(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": map[string]any{"gte": float64(2010), "approx": float64(5)}})
	if err != nil {
		t.Fatalf("unknown operator must not be an error: %v", err)
	}
	want := `metadata["year"] >= 2010`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeFilter_OnlyUnknownOperators(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"year": map[string]any{"approx": float64(5)}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := Compile(f); got != "" {
		t.Fatalf("operator object with no known ops should compile away, got %q", got)
	}
}

func TestDecodeFilter_NonNumericBound(t *testing.T) {
	_, err := DecodeFilter(map[string]any{"year": map[string]any{"gte": "old"}})
	if err == nil {
		t.Fatalf("expected error for non-numeric range bound")
	}
	if apperror.KindOf(err) != apperror.KindMalformed {
		t.Fatalf("expected malformed kind, got %v", apperror.KindOf(err))
	}
}

func TestCompile_QuotesSpecialCharacters(t *testing.T) {
	f, err := DecodeFilter(map[string]any{"note": `say "hi"`})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `metadata["note"] == "say \"hi\""`
	if got := Compile(f); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
