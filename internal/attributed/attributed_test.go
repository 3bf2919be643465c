package attributed

import (
	"strings"
	"testing"

	"howett.net/plist"
)

// keyedArchiveBlob builds a binary-plist keyed archive whose root object
// references text through an NS.string member, mirroring how the store
// archives an NSAttributedString.
func keyedArchiveBlob(t *testing.T, text string) []byte {
	t.Helper()
	archive := map[string]any{
		"$version":  100000,
		"$archiver": "NSKeyedArchiver",
		"$objects": []any{
			"$null",
			map[string]any{"NS.string": plist.UID(2)},
			text,
		},
		"$top": map[string]any{"root": plist.UID(1)},
	}
	blob, err := plist.Marshal(archive, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("marshal keyed archive: %v", err)
	}
	return blob
}

// marshalArchive builds an arbitrary keyed-archive shape for the
// malformed-reference cases.
func marshalArchive(t *testing.T, objects []any, root any) []byte {
	t.Helper()
	archive := map[string]any{
		"$objects": objects,
		"$top":     map[string]any{"root": root},
	}
	blob, err := plist.Marshal(archive, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("marshal archive: %v", err)
	}
	return blob
}

// typedStreamBlob lays out a minimal legacy archive: the stream
// signature, the NSString class name, the member/type prefix, then a
// length-prefixed payload.
func typedStreamBlob(t *testing.T, payload string) []byte {
	t.Helper()
	var b []byte
	b = append(b, 0x04, 0x0b)
	b = append(b, []byte("streamtyped")...)
	b = append(b, 0x81, 0xe8, 0x03, 0x84, 0x01, 0x40, 0x84, 0x84, 0x84)
	b = append(b, []byte("NSString")...)
	b = append(b, 0x01, 0x94, 0x84, 0x01, 0x2b)
	if len(payload) > 127 {
		b = append(b, 0x81, byte(len(payload)), byte(len(payload)>>8))
	} else {
		b = append(b, byte(len(payload)))
	}
	b = append(b, []byte(payload)...)
	b = append(b, 0x86) // end-of-object marker
	return b
}

func TestDecodeKeyedArchive(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text", "Hello world", "Hello world"},
		{"attachment placeholder stripped", "Hello￼World", "HelloWorld"},
		{"placeholder-only body", "￼", ""},
		{"literal escapes unescaped", `line one\nline two\ttabbed`, "line one\nline two\ttabbed"},
		{"literal zero-width escapes", `a\u200ab\u200bc\u200cd`, "a b​c‌d"},
		{"unicode preserved", "café \U0001F600", "café \U0001F600"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(keyedArchiveBlob(t, tt.text)); got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeKeyedArchiveMalformedReferences(t *testing.T) {
	tests := []struct {
		name    string
		objects []any
		root    any
	}{
		{
			name:    "root UID out of range",
			objects: []any{"$null"},
			root:    plist.UID(99),
		},
		{
			name:    "root is not a UID",
			objects: []any{"$null", "text"},
			root:    "not-a-reference",
		},
		{
			name:    "root object is not a dictionary",
			objects: []any{"$null", "just a string"},
			root:    plist.UID(1),
		},
		{
			name:    "root dictionary has no NS.string",
			objects: []any{"$null", map[string]any{"NS.attributes": plist.UID(0)}},
			root:    plist.UID(1),
		},
		{
			name:    "NS.string UID out of range",
			objects: []any{"$null", map[string]any{"NS.string": plist.UID(42)}},
			root:    plist.UID(1),
		},
		{
			name:    "NS.string resolves to a non-string",
			objects: []any{"$null", map[string]any{"NS.string": plist.UID(2)}, map[string]any{}},
			root:    plist.UID(1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(marshalArchive(t, tt.objects, tt.root)); got != "" {
				t.Errorf("Decode() = %q, want empty", got)
			}
		})
	}
}

func TestDecodeTypedStream(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"plain text", "Hi there", "Hi there"},
		{"wrapped string object", `NSString("Hi there")`, "Hi there"},
		{"single-quoted wrapper", `NSMutableString('quoted')`, "quoted"},
		{"attachment placeholder stripped", "photo:￼ done", "photo: done"},
		{"long payload uses two-byte length", strings.Repeat("abc ", 50), strings.Repeat("abc ", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(typedStreamBlob(t, tt.payload)); got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeTypedStreamFallbackScan(t *testing.T) {
	// No recognizable member layout after the class name: the scan
	// should still find the longest printable run.
	var b []byte
	b = append(b, 0x04, 0x0b)
	b = append(b, []byte("streamtyped")...)
	b = append(b, 0x00, 0x01)
	b = append(b, []byte("a noticeably longer candidate string")...)
	b = append(b, 0x00, 0x02)

	if got := Decode(b); got != "a noticeably longer candidate string" {
		t.Errorf("Decode() = %q", got)
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("bplist00"),
		[]byte("bplist00garbage that is not a plist"),
		[]byte("\x04\x0bstreamtyped"),
		[]byte("\x04\x0bstreamtypedNSString"),
		[]byte("\x04\x0bstreamtypedNSString\x01\x94\x84\x01\x2b\xff"),
		[]byte("completely unrelated bytes"),
		{0x00, 0xff, 0xfe, 0x01},
	}
	for _, in := range inputs {
		got := Decode(in)
		if in != nil && len(in) > 0 && got != "" && detectFormat(in) == formatUnknown {
			t.Errorf("Decode(%q) = %q, want empty for unknown format", in, got)
		}
	}
}

func TestStripStringWrapper(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`NSString("Hi there")`, "Hi there"},
		{`NSMutableString("abc")`, "abc"},
		{`NSString(unquoted)`, "unquoted"},
		{`NSString("")`, ""},
		{"no wrapper at all", "no wrapper at all"},
		{`NSString(`, `NSString(`},
	}
	for _, tt := range tests {
		if got := stripStringWrapper(tt.in); got != tt.want {
			t.Errorf("stripStringWrapper(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	if detectFormat([]byte("bplist00xxxx")) != formatKeyedArchive {
		t.Error("bplist magic not detected")
	}
	if detectFormat([]byte("\x04\x0bstreamtyped\x81")) != formatTypedStream {
		t.Error("streamtyped signature not detected")
	}
	if detectFormat([]byte("neither")) != formatUnknown {
		t.Error("unknown bytes misclassified")
	}
}
