package attributed

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"
)

// decodeTypedStream extracts the message text from a legacy typed-stream
// archive, the serialization the Messages store used for attributedBody
// before it adopted keyed archives.
//
// The format serializes a class-tagged object graph. The attributed
// string's backing text is the first NSString payload in the stream: it
// follows the class name, a fixed five-byte member/type prefix, and a
// length (one byte, or 0x81 plus a two-byte little-endian value for
// strings longer than 127 bytes). When that layout does not hold, as in
// old or garbled archives, a printable-run scan picks the most plausible
// candidate instead.
func decodeTypedStream(blob []byte) string {
	if s := extractAfterClassMarker(blob); s != "" {
		return s
	}
	return scanPrintableCandidate(blob)
}

// memberPrefixLen is the number of bytes between the end of the
// "NSString" class name and the length field: member tag, reference
// byte, and the "+" (char array) type code with its tag.
const memberPrefixLen = 5

func extractAfterClassMarker(blob []byte) string {
	idx := bytes.Index(blob, []byte("NSString"))
	if idx < 0 {
		return ""
	}
	pos := idx + len("NSString") + memberPrefixLen
	if pos >= len(blob) {
		return ""
	}

	length := int(blob[pos])
	pos++
	if length == 0x81 {
		// Two-byte little-endian length escape.
		if pos+2 > len(blob) {
			return ""
		}
		length = int(blob[pos]) | int(blob[pos+1])<<8
		pos += 2
	}
	if length <= 0 || pos+length > len(blob) {
		return ""
	}

	text := string(blob[pos : pos+length])
	if !utf8.ValidString(text) {
		return ""
	}
	return text
}

// classNames are serialization artifacts that must not be mistaken for
// message text during the fallback scan.
var classNames = map[string]bool{
	"streamtyped":               true,
	"NSString":                  true,
	"NSMutableString":           true,
	"NSAttributedString":        true,
	"NSMutableAttributedString": true,
	"NSObject":                  true,
	"NSDictionary":              true,
	"NSMutableDictionary":       true,
	"NSNumber":                  true,
	"NSValue":                   true,
	"NSData":                    true,
	"NSMutableData":             true,
}

// scanPrintableCandidate is the best-effort path for archives whose
// member layout the primary extraction does not recognize. It collects
// maximal runs of printable bytes and returns the longest run that is
// not a known class or attribute name. The heuristic is approximate and
// may pick the wrong member in unusual archives.
func scanPrintableCandidate(blob []byte) string {
	var best string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := string(blob[start:end])
		start = -1
		if len(run) < 3 || classNames[run] || strings.HasPrefix(run, "__kIM") {
			return
		}
		if !utf8.ValidString(run) || printableRatio(run) < 0.9 {
			return
		}
		if len(run) > len(best) {
			best = run
		}
	}
	for i, b := range blob {
		if b >= 0x20 && b < 0x7f || b >= 0x80 {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(blob))
	return best
}

func printableRatio(s string) float64 {
	if s == "" {
		return 0
	}
	printable := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}
