package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	if !m.Now().Equal(start) {
		t.Fatalf("unexpected start: %v", m.Now())
	}
	got := m.Advance(1500 * time.Millisecond)
	if !got.Equal(start.Add(1500 * time.Millisecond)) {
		t.Fatalf("advance failed: %v", got)
	}
	m.Set(start)
	if !m.Now().Equal(start) {
		t.Fatalf("set failed: %v", m.Now())
	}
}

func TestUTCClockLocation(t *testing.T) {
	if UTC.Now().Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
}

func TestFuncClock(t *testing.T) {
	ts := time.Unix(42, 0)
	c := Func(func() time.Time { return ts })
	if !c.Now().Equal(ts) {
		t.Fatalf("func clock mismatch")
	}
}
