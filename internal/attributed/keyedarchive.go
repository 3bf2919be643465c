package attributed

import (
	"howett.net/plist"
)

// decodeKeyedArchive extracts the string value from a keyed archive
// stored as a binary property list.
//
// A keyed archive is a flat object table ($objects) plus an entry point
// ($top.root). References between objects are UIDs: indices into the
// shared table. The path to the text is
//
//	$top.root -> NSAttributedString dict -> "NS.string" -> string object
//
// Every dereference is bounds- and shape-checked; any mismatch
// short-circuits to the empty string rather than an error.
func decodeKeyedArchive(blob []byte) string {
	var payload any
	if _, err := plist.Unmarshal(blob, &payload); err != nil {
		return ""
	}

	archive, ok := payload.(map[string]any)
	if !ok {
		return ""
	}

	objects, ok := archive["$objects"].([]any)
	if !ok {
		return ""
	}
	top, ok := archive["$top"].(map[string]any)
	if !ok {
		return ""
	}

	root, ok := deref(objects, top["root"])
	if !ok {
		return ""
	}
	rootDict, ok := root.(map[string]any)
	if !ok {
		return ""
	}

	str, ok := deref(objects, rootDict["NS.string"])
	if !ok {
		return ""
	}
	text, ok := str.(string)
	if !ok {
		return ""
	}
	return text
}

// deref resolves a UID reference against the object table. It reports
// false when ref is not a UID or the index is out of range.
func deref(objects []any, ref any) (any, bool) {
	uid, ok := ref.(plist.UID)
	if !ok {
		return nil, false
	}
	if uint64(uid) >= uint64(len(objects)) {
		return nil, false
	}
	return objects[uid], true
}
