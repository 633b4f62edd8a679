package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v outside [%v, %v]", got, before, after)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", c.Now(), want)
	}

	if got := c.Since(start); got != 5*time.Second {
		t.Errorf("Since(start) = %v, want 5s", got)
	}
}

func TestMockClockSet(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	target := time.Date(2025, 7, 15, 6, 30, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", c.Now(), target)
	}
}

func TestMockClockRecordsWaits(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))

	c.Sleep(2 * time.Second)
	<-c.After(4 * time.Second)

	waits := c.Waits()
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 4*time.Second {
		t.Errorf("Waits() = %v, want [2s 4s]", waits)
	}

	// Waits must also advance the mocked time.
	if got := c.Now(); !got.Equal(time.Unix(6, 0)) {
		t.Errorf("Now() = %v, want %v", got, time.Unix(6, 0))
	}
}

func TestMockClockAfterFires(t *testing.T) {
	c := NewMockClock(time.Unix(100, 0))
	select {
	case ts := <-c.After(time.Second):
		if !ts.Equal(time.Unix(101, 0)) {
			t.Errorf("fired at %v, want %v", ts, time.Unix(101, 0))
		}
	default:
		t.Fatal("After channel did not fire")
	}
}
