package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2023-07-14", "2023-07-14T22:15:00Z"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v", s, got)
		}
	}
	if _, err := ParseDate("14/07/2023"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if got := ParseDateDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	from, to, err := DateRange("", "", now, 30)
	if err != nil {
		t.Fatal(err)
	}
	if !to.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) || !from.Equal(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected range %v..%v", from, to)
	}

	if _, _, err := DateRange("2024-03-01", "2024-02-01", now, 30); err == nil {
		t.Fatalf("expected inverted range error")
	}
}
