// Package idgen generates short, content-derived identifiers encoded in
// base36.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts data to a base36 string of exactly length
// characters, left-padding with zeros or truncating to the least
// significant digits as needed.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var result strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// WALEntryID derives a WAL entry filename component from the document id,
// a monotonic sequence number, and the wall-clock time it was appended —
// collisions within the same process are impossible because seq is
// process-local and monotonic; across processes the flock directory guard
// (internal/lockfile) rules out concurrent writers.
func WALEntryID(documentID string, seq uint64, at time.Time) string {
	content := fmt.Sprintf("%s|%d|%d", documentID, seq, at.UnixNano())
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%013d-%s", at.UnixNano()/int64(time.Millisecond), EncodeBase36(hash[:4], 7))
}
