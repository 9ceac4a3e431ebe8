// Package naming derives column names for predicate calls.
package naming

import (
	"crypto/md5"
	"encoding/binary"
	"strconv"
	"strings"
)

// Hash folds the first 64 bits of the MD5 digest of text into the signed
// range and returns the magnitude. Equal texts always hash equally; the hash
// is sensitive to argument order and whitespace.
func Hash(text string) uint64 {
	sum := md5.Sum([]byte(text))
	u := binary.BigEndian.Uint64(sum[:8])
	s := int64(u - 1<<63)
	if s < 0 {
		return uint64(^s) + 1
	}
	return uint64(s)
}

// ColumnName returns the internal column name for a call on predicate with
// the given call text, e.g. "total_8417762390196305151".
func ColumnName(predicate, text string) string {
	return strings.ToLower(predicate) + "_" + strconv.FormatUint(Hash(text), 10)
}

var displayEscaper = strings.NewReplacer("(", "<", ")", ">", `"`, "'", "`", "'")

// DisplayColumnName returns the outward-facing column name for call text:
// the text itself, with parentheses and both kinds of quotes escaped, as a
// backquoted identifier.
func DisplayColumnName(text string) string {
	return "`" + displayEscaper.Replace(text) + "`"
}
