package utils

import (
	"testing"
	"time"
)

func TestParseDatetime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-15T14:30:00Z", time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15T14:30:00.250Z", time.Date(2024, 3, 15, 14, 30, 0, 250_000_000, time.UTC)},
		{"2024-03-15T16:30:00+02:00", time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15T14:30:00", time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15 14:30:00", time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"1710513000000", time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseDatetime(c.in)
		if err != nil {
			t.Errorf("ParseDatetime(%q): %v", c.in, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseDatetime(%q) = %v, want %v", c.in, got, c.want)
		}
		if got.Location() != time.UTC {
			t.Errorf("ParseDatetime(%q) not normalized to UTC", c.in)
		}
	}
}

func TestParseDatetimeInvalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "15/03/2024"} {
		if _, err := ParseDatetime(in); err == nil {
			t.Errorf("ParseDatetime(%q): expected error", in)
		}
	}
}

func TestApproxEqual(t *testing.T) {
	if !ApproxEqual(0.1+0.2, 0.3) {
		t.Error("0.1+0.2 should compare equal to 0.3")
	}
	if ApproxEqual(1.0, 1.0001) {
		t.Error("1.0 and 1.0001 should differ")
	}
	if !IsZero(1e-12) || IsZero(0.001) {
		t.Error("IsZero threshold misbehaving")
	}
}

func TestRoundFloat(t *testing.T) {
	if got := RoundFloat(2.34567, 2); got != 2.35 {
		t.Errorf("RoundFloat(2.34567, 2) = %g, want 2.35", got)
	}
	if got := RoundFloat(-1.005, 1); got != -1.0 {
		t.Errorf("RoundFloat(-1.005, 1) = %g, want -1", got)
	}
}
