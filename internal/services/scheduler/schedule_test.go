package scheduler

import (
	"testing"
	"time"

	"github.com/ternarybob/fueltrack/internal/models"
)

func TestDeriveSchedule(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, loc)
	future := time.Date(2025, time.June, 15, 14, 30, 0, 0, loc)
	past := time.Date(2025, time.May, 1, 9, 0, 0, 0, loc)

	tests := []struct {
		name        string
		cfg         models.SchedulerConfig
		wantExpr    string
		wantOneShot bool
		wantNone    bool
		wantWarning bool
	}{
		{
			name:     "all fields empty yields no trigger",
			cfg:      models.SchedulerConfig{Enabled: true},
			wantNone: true,
		},
		{
			name:     "single hour",
			cfg:      models.SchedulerConfig{Enabled: true, Hours: []int{6}},
			wantExpr: "0 6 * * *",
		},
		{
			name: "multiple fields join with commas",
			cfg: models.SchedulerConfig{
				Enabled: true,
				Hours:   []int{6, 18},
				Days:    []int{1, 15},
			},
			wantExpr: "0 6,18 1,15 * *",
		},
		{
			name:     "weekdays only",
			cfg:      models.SchedulerConfig{Enabled: true, Weekdays: []int{1, 3, 5}},
			wantExpr: "0 * * * 1,3,5",
		},
		{
			name: "future start date overrides recurring fields",
			cfg: models.SchedulerConfig{
				Enabled:   true,
				Hours:     []int{6},
				StartDate: &future,
			},
			wantExpr:    "30 14 15 6 *",
			wantOneShot: true,
		},
		{
			name: "past start date falls back to recurring with warning",
			cfg: models.SchedulerConfig{
				Enabled:   true,
				Hours:     []int{6},
				StartDate: &past,
			},
			wantExpr:    "0 6 * * *",
			wantWarning: true,
		},
		{
			name: "past start date with wildcard fields yields no trigger",
			cfg: models.SchedulerConfig{
				Enabled:   true,
				StartDate: &past,
			},
			wantNone:    true,
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derived, warning := deriveSchedule(tt.cfg, now, loc)

			if tt.wantWarning && warning == "" {
				t.Error("expected a warning, got none")
			}
			if !tt.wantWarning && warning != "" {
				t.Errorf("unexpected warning: %s", warning)
			}

			if tt.wantNone {
				if derived != nil {
					t.Errorf("expected no schedule, got %q", derived.Expr)
				}
				return
			}

			if derived == nil {
				t.Fatalf("expected schedule %q, got none", tt.wantExpr)
			}
			if derived.Expr != tt.wantExpr {
				t.Errorf("expr = %q, want %q", derived.Expr, tt.wantExpr)
			}
			if derived.OneShot != tt.wantOneShot {
				t.Errorf("oneShot = %v, want %v", derived.OneShot, tt.wantOneShot)
			}
		})
	}
}

func TestJoinField(t *testing.T) {
	if got := joinField(nil); got != "*" {
		t.Errorf("joinField(nil) = %q, want *", got)
	}
	if got := joinField([]int{7}); got != "7" {
		t.Errorf("joinField([7]) = %q, want 7", got)
	}
	if got := joinField([]int{0, 6, 12}); got != "0,6,12" {
		t.Errorf("joinField([0 6 12]) = %q, want 0,6,12", got)
	}
}
