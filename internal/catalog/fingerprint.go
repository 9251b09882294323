package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Fingerprint returns the hex SHA-256 of everything read from r and the
// number of bytes consumed. File names and metadata play no part.
func Fingerprint(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

var pdfMagic = []byte("%PDF-")

// LooksLikePDF reports whether data starts with the PDF header.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
