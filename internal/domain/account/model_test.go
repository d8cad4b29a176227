package account

import (
	"testing"
	"time"
)

func TestSnapshotSchema(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Schema
	}{
		{
			name: "typed account uses current schema",
			snap: Snapshot{Type: TypePaid},
			want: SchemaCurrent,
		},
		{
			name: "demo type uses current schema",
			snap: Snapshot{Type: TypeDemo},
			want: SchemaCurrent,
		},
		{
			name: "unset type falls back to legacy schema",
			snap: Snapshot{Type: TypeUnset, PaidLegacy: true},
			want: SchemaLegacy,
		},
		{
			name: "legacy row with no flags is still legacy",
			snap: Snapshot{},
			want: SchemaLegacy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.Schema(); got != tt.want {
				t.Errorf("Schema() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotTrialActive(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		endsAt  *time.Time
		at      time.Time
		want    bool
	}{
		{
			name:   "no trial window",
			endsAt: nil,
			at:     now,
			want:   false,
		},
		{
			name:   "one second before expiry is active",
			endsAt: timePtr(now.Add(time.Second)),
			at:     now,
			want:   true,
		},
		{
			name:   "exact expiry instant counts as ended",
			endsAt: timePtr(now),
			at:     now,
			want:   false,
		},
		{
			name:   "one second after expiry is ended",
			endsAt: timePtr(now.Add(-time.Second)),
			at:     now,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Type: TypeTrial, TrialEndsAt: tt.endsAt}
			if got := snap.TrialActive(tt.at); got != tt.want {
				t.Errorf("TrialActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
