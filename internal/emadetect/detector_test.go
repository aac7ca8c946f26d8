package emadetect

import (
	"testing"
	"time"

	"btcdesk/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCrossAboveFiresOnce(t *testing.T) {
	d := New(models.EMA55Kind)

	// Start well below the EMA, outside touch tolerance
	if ev := d.Feed(Sample{Price: 49000, EMA: 50000, Timestamp: t0}); ev != nil {
		t.Fatalf("first sample emitted %v, want nil", ev.Kind)
	}

	ev := d.Feed(Sample{Price: 51000, EMA: 50000, Timestamp: t0.Add(time.Minute)})
	if ev == nil {
		t.Fatal("crossing sample emitted nothing, want cross_above")
	}
	if ev.Kind != models.CrossAbove {
		t.Errorf("Kind = %v, want cross_above", ev.Kind)
	}
	if ev.EMAKind != models.EMA55Kind {
		t.Errorf("EMAKind = %v, want ema55", ev.EMAKind)
	}
}

func TestCrossSuppressedByCooldown(t *testing.T) {
	d := New(models.EMA55Kind)

	d.Feed(Sample{Price: 49000, EMA: 50000, Timestamp: t0})
	if ev := d.Feed(Sample{Price: 51000, EMA: 50000, Timestamp: t0.Add(time.Minute)}); ev == nil {
		t.Fatal("first crossing emitted nothing")
	}

	// Identical crossing two minutes later, inside the 5m cooldown
	d.Feed(Sample{Price: 49000, EMA: 50000, Timestamp: t0.Add(2 * time.Minute)})
	if ev := d.Feed(Sample{Price: 51000, EMA: 50000, Timestamp: t0.Add(3 * time.Minute)}); ev != nil {
		t.Errorf("crossing inside cooldown emitted %v, want nil", ev.Kind)
	}

	// After the cooldown expires events fire again
	d.Feed(Sample{Price: 49000, EMA: 50000, Timestamp: t0.Add(4 * time.Minute)})
	if ev := d.Feed(Sample{Price: 51000, EMA: 50000, Timestamp: t0.Add(8 * time.Minute)}); ev == nil {
		t.Error("crossing after cooldown emitted nothing")
	}
}

func TestTouchDirections(t *testing.T) {
	tests := []struct {
		name      string
		prevPrice float64
		curPrice  float64
		want      models.EventKind
	}{
		{
			name:      "Touch from above",
			prevPrice: 50300, // 0.6% above
			curPrice:  50050, // 0.1% above
			want:      models.TouchFromAbove,
		},
		{
			name:      "Touch from below",
			prevPrice: 49700, // 0.6% below
			curPrice:  49950, // 0.1% below
			want:      models.TouchFromBelow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(models.EMA200Kind)
			d.Feed(Sample{Price: tt.prevPrice, EMA: 50000, Timestamp: t0})
			ev := d.Feed(Sample{Price: tt.curPrice, EMA: 50000, Timestamp: t0.Add(time.Minute)})
			if ev == nil {
				t.Fatal("touch sample emitted nothing")
			}
			if ev.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", ev.Kind, tt.want)
			}
		})
	}
}

func TestTouchSuppressesCrossSameSample(t *testing.T) {
	d := New(models.EMA55Kind)

	// From 0.6% above to 0.06% below: the sign flips, but the sample
	// lands inside the touch tolerance so it must classify as a touch.
	d.Feed(Sample{Price: 50300, EMA: 50000, Timestamp: t0})
	ev := d.Feed(Sample{Price: 49970, EMA: 50000, Timestamp: t0.Add(time.Minute)})
	if ev == nil {
		t.Fatal("sample emitted nothing")
	}
	if ev.Kind != models.TouchFromAbove {
		t.Errorf("Kind = %v, want touch_from_above", ev.Kind)
	}
}

func TestNoEventWhileInsideTolerance(t *testing.T) {
	d := New(models.EMA55Kind)

	d.Feed(Sample{Price: 50050, EMA: 50000, Timestamp: t0})
	if ev := d.Feed(Sample{Price: 50020, EMA: 50000, Timestamp: t0.Add(time.Minute)}); ev != nil {
		t.Errorf("sample inside tolerance emitted %v, want nil", ev.Kind)
	}
}

func TestDegenerateSamplesDropped(t *testing.T) {
	d := New(models.EMA55Kind)

	d.Feed(Sample{Price: 49000, EMA: 50000, Timestamp: t0})
	if ev := d.Feed(Sample{Price: 51000, EMA: 0, Timestamp: t0.Add(time.Minute)}); ev != nil {
		t.Errorf("degenerate sample emitted %v, want nil", ev.Kind)
	}
	// The dropped sample must not have overwritten the previous state
	if ev := d.Feed(Sample{Price: 51000, EMA: 50000, Timestamp: t0.Add(2 * time.Minute)}); ev == nil {
		t.Error("crossing after degenerate sample emitted nothing")
	}
}

func TestSetTracksKindsIndependently(t *testing.T) {
	s := NewSet()

	s.Feed(49000, 50000, 48000, t0)
	// Price crosses EMA55 upward while staying above EMA200
	events := s.Feed(51000, 50000, 48000, t0.Add(time.Minute))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].EMAKind != models.EMA55Kind || events[0].Kind != models.CrossAbove {
		t.Errorf("event = %v/%v, want ema55 cross_above", events[0].EMAKind, events[0].Kind)
	}
}
