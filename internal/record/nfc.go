package record

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NFCIDLength is the number of characters in an NFC ID.
const NFCIDLength = 8

// ErrInvalidNFCID is returned when an NFC ID is malformed.
var ErrInvalidNFCID = errors.New("record: invalid nfc id")

// NewNFCID returns a fresh 8-character uppercase hexadecimal NFC ID.
// Uniqueness is enforced by the store; callers regenerate on conflict.
func NewNFCID() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:NFCIDLength])
}

// ValidNFCID reports whether s has the shape of an NFC ID.
func ValidNFCID(s string) bool {
	if len(s) != NFCIDLength {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// NormalizeNFCID upper-cases and trims s, returning ErrInvalidNFCID if the
// result is not a valid NFC ID.
func NormalizeNFCID(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !ValidNFCID(s) {
		return "", ErrInvalidNFCID
	}
	return s, nil
}
