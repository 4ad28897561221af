package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Chunk is one unit of ingested content: the text that gets embedded plus the
// loosely-typed metadata carried alongside it into the vector store payload.
// Chunks are immutable once built; re-ingesting identical content produces the
// same ID and overwrites in place.
type Chunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Empty reports whether the chunk has no indexable text.
func Empty(c Chunk) bool {
	return strings.TrimSpace(c.Text) == ""
}

// ID derives the content-addressed identifier for a chunk: a sha256 digest of
// the text concatenated with the canonical JSON form of the metadata.
// encoding/json marshals map keys in sorted order, so insertion order never
// affects the result. Digest collisions are an accepted risk and not detected.
func ID(text string, metadata map[string]any) string {
	canonical, err := json.Marshal(metadata)
	if err != nil {
		// Metadata comes from decoded JSON and form fields; only exotic
		// values (channels, funcs) could fail here. Fall back to text-only.
		canonical = nil
	}
	h := sha256.Sum256(append([]byte(text), canonical...))
	return hex.EncodeToString(h[:])
}
