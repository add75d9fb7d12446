package delivery_test

import (
	"testing"
	"time"

	"github.com/formhive/hookline/delivery"
)

func TestBackoffDelay(t *testing.T) {
	b := delivery.NewBackoff([]time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Minute},
		{2, 5 * time.Minute},
		{3, 15 * time.Minute},
		{4, 15 * time.Minute},  // beyond schedule reuses last entry
		{10, 15 * time.Minute}, // far beyond still clamps
		{0, 1 * time.Minute},   // degenerate input clamps to first
	}

	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffEmptyScheduleUsesDefault(t *testing.T) {
	for _, b := range []*delivery.Backoff{
		delivery.NewBackoff(nil),
		delivery.NewBackoff([]time.Duration{}),
	} {
		if got := b.Delay(1); got != 1*time.Minute {
			t.Errorf("Delay(1) = %v, want %v", got, 1*time.Minute)
		}
		if got := b.Delay(2); got != 5*time.Minute {
			t.Errorf("Delay(2) = %v, want %v", got, 5*time.Minute)
		}
		if got := b.Delay(10); got != 15*time.Minute {
			t.Errorf("Delay(10) = %v, want %v", got, 15*time.Minute)
		}
	}
}

func TestBackoffNextRetryAt(t *testing.T) {
	b := delivery.NewBackoff([]time.Duration{1 * time.Minute, 5 * time.Minute})
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := b.NextRetryAt(created, 1)
	want := created.Add(1 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("NextRetryAt(created, 1) = %v, want %v", got, want)
	}

	got = b.NextRetryAt(created, 2)
	want = created.Add(5 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("NextRetryAt(created, 2) = %v, want %v", got, want)
	}
}
