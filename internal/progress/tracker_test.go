package progress

import (
	"math"
	"testing"
	"time"
)

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestTrackerUpdate(t *testing.T) {
	tests := []struct {
		name   string
		end    time.Duration
		total  time.Duration
		want   float64
		wantOK bool
	}{
		{"first segment", secs(5), secs(120), 4.1667, true},
		{"half way", secs(60), secs(120), 50, true},
		{"exactly total", secs(120), secs(120), 100, true},
		{"past total", secs(125.3), secs(120), 100, true},
		{"zero end", 0, secs(120), 0, true},
		{"unknown total", secs(5), 0, 0, false},
		{"negative total", secs(5), -secs(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Tracker
			got, ok := tr.Update(tt.end, tt.total)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("percent = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestTrackerNeverDecreases(t *testing.T) {
	var tr Tracker
	total := secs(100)

	ends := []float64{10, 30, 25, 40, 39.9, 90}
	prev := 0.0
	for _, e := range ends {
		p, ok := tr.Update(secs(e), total)
		if !ok {
			t.Fatal("expected ok")
		}
		if p < prev {
			t.Fatalf("progress went backwards: %f after %f", p, prev)
		}
		if p < 0 || p > 100 {
			t.Fatalf("progress %f outside [0,100]", p)
		}
		prev = p
	}
}

func TestTrackerSequenceForTwoSegments(t *testing.T) {
	var tr Tracker
	total := secs(120)

	p1, _ := tr.Update(secs(5), total)
	p2, _ := tr.Update(secs(12), total)
	final := tr.Complete()

	if math.Round(p1*100)/100 != 4.17 {
		t.Errorf("first = %.2f, want 4.17", p1)
	}
	if math.Abs(p2-10) > 1e-9 {
		t.Errorf("second = %f, want 10", p2)
	}
	if final != 100 {
		t.Errorf("final = %f, want 100", final)
	}
}

func TestTrackerReset(t *testing.T) {
	var tr Tracker
	tr.Update(secs(50), secs(100))
	tr.Reset()
	if tr.Percent() != 0 {
		t.Fatalf("percent after reset = %f, want 0", tr.Percent())
	}
}
