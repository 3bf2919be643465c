package appletime

import (
	"testing"
	"time"
)

func int64p(v int64) *int64 { return &v }

func TestToTime(t *testing.T) {
	tests := []struct {
		name string
		raw  *int64
		want time.Time
	}{
		{
			name: "zero is the Apple epoch",
			raw:  int64p(0),
			want: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "seconds below the threshold",
			raw:  int64p(60),
			want: time.Date(2001, 1, 1, 0, 1, 0, 0, time.UTC),
		},
		{
			name: "exactly at the threshold is still seconds",
			raw:  int64p(1_000_000_000_000),
			want: time.Unix(978307200+1_000_000_000_000, 0).UTC(),
		},
		{
			name: "just above the threshold is nanoseconds",
			raw:  int64p(1_000_000_000_001),
			want: time.Unix(978307200+1000, 1).UTC(),
		},
		{
			name: "typical modern nanosecond value",
			raw:  int64p(694224000_000_000_000),
			want: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTime(tt.raw)
			if got == nil {
				t.Fatalf("ToTime(%d) = nil, want %v", *tt.raw, tt.want)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ToTime(%d) = %v, want %v", *tt.raw, got, tt.want)
			}
		})
	}
}

func TestToTimeNil(t *testing.T) {
	if got := ToTime(nil); got != nil {
		t.Errorf("ToTime(nil) = %v, want nil", got)
	}
}

func TestFormatISOIn(t *testing.T) {
	epoch := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatISOIn(&epoch, time.UTC); got != "2001-01-01T00:00:00+00:00" {
		t.Errorf("FormatISOIn(epoch, UTC) = %q", got)
	}

	est := time.FixedZone("EST", -5*3600)
	if got := FormatISOIn(&epoch, est); got != "2000-12-31T19:00:00-05:00" {
		t.Errorf("FormatISOIn(epoch, EST) = %q", got)
	}

	if got := FormatISOIn(nil, time.UTC); got != "" {
		t.Errorf("FormatISOIn(nil) = %q, want empty", got)
	}
}

func TestFormatLocalISONil(t *testing.T) {
	if got := FormatLocalISO(nil); got != "" {
		t.Errorf("FormatLocalISO(nil) = %q, want empty", got)
	}
}
