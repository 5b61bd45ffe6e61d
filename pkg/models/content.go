package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// PageContent is the extracted text of one fetched detail page.
type PageContent struct {
	URL         string `json:"url"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
}

// HashContent digests extracted page text for change detection.
// The hash is the first 16 hex chars of a SHA-256 digest.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
