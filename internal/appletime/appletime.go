// Package appletime converts the Messages store's native timestamps
// (seconds or nanoseconds since the Apple epoch, 2001-01-01 UTC) into
// absolute time values and renders them as local-time ISO-8601 text.
package appletime

import "time"

// epochOffset is the number of seconds between the Unix epoch
// (1970-01-01) and the Apple epoch (2001-01-01).
const epochOffset = 978307200

// nanosecondThreshold separates second-resolution values from
// nanosecond-resolution ones. Modern macOS stores nanoseconds; older
// databases store whole seconds. Any magnitude above 10^12 can only be
// nanoseconds (10^12 seconds is ~33,000 years after 2001).
const nanosecondThreshold = 1_000_000_000_000

// isoLayout renders ISO-8601 with a UTC offset, e.g. 2001-01-01T00:00:00+00:00.
const isoLayout = "2006-01-02T15:04:05-07:00"

// ToTime converts a raw store timestamp to an absolute time in UTC.
// A nil input yields nil.
func ToTime(raw *int64) *time.Time {
	if raw == nil {
		return nil
	}
	v := *raw
	mag := v
	if mag < 0 {
		mag = -mag
	}
	var t time.Time
	if mag > nanosecondThreshold {
		t = time.Unix(epochOffset+v/1e9, v%1e9).UTC()
	} else {
		t = time.Unix(epochOffset+v, 0).UTC()
	}
	return &t
}

// FormatLocalISO renders t in the local timezone as ISO-8601 with a
// UTC offset. A nil input renders as the empty string.
func FormatLocalISO(t *time.Time) string {
	return FormatISOIn(t, time.Local)
}

// FormatISOIn renders t in the given location. Exporters default to
// time.Local; tests inject time.UTC for stable output.
func FormatISOIn(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(isoLayout)
}
