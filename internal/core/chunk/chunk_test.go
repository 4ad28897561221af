package chunk

import "testing"

func TestID_Deterministic(t *testing.T) {
	meta := map[string]any{"department": "finance", "year": 2013}
	a := ID("some chunk text", meta)
	b := ID("some chunk text", map[string]any{"department": "finance", "year": 2013})
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
}

func TestID_KeyOrderIndependent(t *testing.T) {
	a := ID("text", map[string]any{"a": 1, "b": 2, "c": 3})
	b := ID("text", map[string]any{"c": 3, "b": 2, "a": 1})
	if a != b {
		t.Fatalf("key insertion order changed id")
	}
}

func TestID_MetadataSensitive(t *testing.T) {
	a := ID("text", map[string]any{"year": 2013})
	b := ID("text", map[string]any{"year": 2014})
	if a == b {
		t.Fatalf("metadata change did not change id")
	}
}

func TestID_TextSensitive(t *testing.T) {
	meta := map[string]any{"year": 2013}
	if ID("text one", meta) == ID("text two", meta) {
		t.Fatalf("text change did not change id")
	}
}

func TestID_NestedMetadata(t *testing.T) {
	a := ID("text", map[string]any{"tags": []any{"tax", "income"}, "extra": map[string]any{"x": 1, "y": 2}})
	b := ID("text", map[string]any{"extra": map[string]any{"y": 2, "x": 1}, "tags": []any{"tax", "income"}})
	if a != b {
		t.Fatalf("nested key order changed id")
	}
	c := ID("text", map[string]any{"tags": []any{"income", "tax"}, "extra": map[string]any{"x": 1, "y": 2}})
	if a == c {
		t.Fatalf("sequence order is significant and must change the id")
	}
}

func TestEmpty(t *testing.T) {
	if !Empty(Chunk{Text: "   \n\t"}) {
		t.Fatalf("whitespace-only chunk should be empty")
	}
	if Empty(Chunk{Text: "x"}) {
		t.Fatalf("non-empty chunk flagged empty")
	}
}
