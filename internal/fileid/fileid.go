// Package fileid derives stable source identifiers for ingested article files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "src:"

// SourceID returns a stable identifier for the file at path inside the corpus
// rooted at root. The id depends only on the slash-separated path relative to
// root ("area/file.pdf"), so moving the whole corpus keeps ids unchanged. When
// path is not under root the cleaned path itself is hashed.
func SourceID(root, path string) string {
	key := filepath.Clean(path)
	if rel, err := filepath.Rel(filepath.Clean(root), key); err == nil && filepath.IsLocal(rel) {
		key = rel
	}
	hash := sha256.Sum256([]byte(filepath.ToSlash(key)))
	return prefix + hex.EncodeToString(hash[:16])
}
