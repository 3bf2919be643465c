// Package attributed recovers plain text from the attributedBody column
// of the Messages store.
//
// The column holds an archived NSAttributedString in one of two binary
// encodings: a keyed archive inside a binary property list (modern), or
// a typed-stream object graph (legacy). Both are undocumented; decoding
// is strictly best-effort and total: malformed input yields the empty
// string, never an error.
package attributed

import (
	"bytes"
	"strings"
)

// bodyFormat tags the two known encodings. Dispatch happens once at
// decode entry based on the leading bytes.
type bodyFormat int

const (
	formatUnknown bodyFormat = iota
	formatKeyedArchive
	formatTypedStream
)

var (
	bplistMagic          = []byte("bplist00")
	typedStreamSignature = []byte("streamtyped")
)

// objectReplacementChar is the inline placeholder an archive uses where
// an attachment was embedded. It carries no text and is stripped.
const objectReplacementChar = "￼"

// detectFormat sniffs the encoding from the first bytes of the blob.
func detectFormat(blob []byte) bodyFormat {
	if bytes.HasPrefix(blob, bplistMagic) {
		return formatKeyedArchive
	}
	if len(blob) >= 2 && bytes.Contains(blob[:min(len(blob), 16)], typedStreamSignature) {
		return formatTypedStream
	}
	return formatUnknown
}

// Decode extracts the message text from an attributedBody blob.
// It returns the empty string when the blob is empty, unrecognized, or
// malformed. Decoding is the most expensive step of an export; callers
// invoke it only when the plain-text column is unpopulated.
func Decode(blob []byte) (text string) {
	// The plist container parser is not trusted with arbitrary bytes.
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	if len(blob) == 0 {
		return ""
	}

	var raw string
	switch detectFormat(blob) {
	case formatKeyedArchive:
		raw = decodeKeyedArchive(blob)
	case formatTypedStream:
		// The typed-stream path can surface a rendered string-object
		// wrapper instead of the raw text; strip it before the shared
		// normalization.
		raw = stripStringWrapper(decodeTypedStream(blob))
	default:
		return ""
	}
	return postProcess(raw)
}

// postProcess normalizes decoded text regardless of source encoding:
// literal escape sequences become real characters and attachment
// placeholders are removed.
func postProcess(s string) string {
	if s == "" {
		return ""
	}
	s = unescapeLiterals(s)
	return strings.ReplaceAll(s, objectReplacementChar, "")
}

// stripStringWrapper removes NSString("...")-style wrapper notation
// surfaced when the archived member is itself a rendered string object
// rather than raw text.
func stripStringWrapper(s string) string {
	var inner string
	switch {
	case strings.HasPrefix(s, "NSString(") && strings.HasSuffix(s, ")"):
		inner = s[len("NSString(") : len(s)-1]
	case strings.HasPrefix(s, "NSMutableString(") && strings.HasSuffix(s, ")"):
		inner = s[len("NSMutableString(") : len(s)-1]
	default:
		return s
	}
	if len(inner) >= 2 {
		if (inner[0] == '"' && inner[len(inner)-1] == '"') ||
			(inner[0] == '\'' && inner[len(inner)-1] == '\'') {
			return inner[1 : len(inner)-1]
		}
	}
	return inner
}

// literalEscapes maps backslash sequences the archival encodings commonly
// emit as literal text rather than as real code points.
var literalEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\u200a`, "\u200a", // hair space
	`\u200b`, "\u200b", // zero-width space
	`\u200c`, "\u200c", // zero-width non-joiner
)

func unescapeLiterals(s string) string {
	return literalEscapes.Replace(s)
}
