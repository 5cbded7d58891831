package feed

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultWeightsValidate ensures the shipped defaults pass their own
// validation.
func TestDefaultWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights failed validation: %v", err)
	}
}

// TestValidateRejectsBadTables tests the fail-fast checks.
func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *Weights)
		wantErr error
	}{
		{
			name:    "friends weights not normalized",
			mutate:  func(w *Weights) { w.Friends.Recency = 0.9 },
			wantErr: ErrWeightsNotNormalized,
		},
		{
			name:    "quality blend not normalized",
			mutate:  func(w *Weights) { w.Quality.Save = 0.7 },
			wantErr: ErrWeightsNotNormalized,
		},
		{
			name:    "home ratios above one",
			mutate:  func(w *Weights) { w.Ratios.Friends = 0.9 },
			wantErr: ErrRatiosExceedOne,
		},
		{
			name:    "discover ratios above one",
			mutate:  func(w *Weights) { w.Discover.Known = 0.95 },
			wantErr: ErrRatiosExceedOne,
		},
		{
			name:    "zero tau",
			mutate:  func(w *Weights) { w.Targets.FriendsTauHours = 0 },
			wantErr: ErrNonPositiveTau,
		},
		{
			name:    "zero target rate",
			mutate:  func(w *Weights) { w.Targets.ViralEngagementRate = 0 },
			wantErr: ErrNonPositiveTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(w)
			err := w.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestMergeCalibration tests partial override semantics.
func TestMergeCalibration(t *testing.T) {
	t.Run("nil override keeps base", func(t *testing.T) {
		base := DefaultWeights()
		merged := MergeCalibration(base, nil)
		if *merged != *base {
			t.Error("merge with nil override should equal base")
		}
	})

	t.Run("zero sections are not applied", func(t *testing.T) {
		base := DefaultWeights()
		override := &Weights{
			Friends: FriendsWeights{Recency: 0.50, Engagement: 0.20, Relationship: 0.20, Meaningful: 0.10},
		}
		merged := MergeCalibration(base, override)

		if math.Abs(merged.Friends.Recency-0.50) > scoreTolerance {
			t.Errorf("friends section should be overridden, got %f", merged.Friends.Recency)
		}
		if merged.Ratios != base.Ratios {
			t.Error("untouched ratios section should keep base values")
		}
		if merged.Thresholds != base.Thresholds {
			t.Error("untouched thresholds section should keep base values")
		}
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		base := DefaultWeights()
		before := *base
		override := &Weights{Surprise: SurpriseWeights{Viral: 0.5, Quality: 0.5}}
		MergeCalibration(base, override)
		if *base != before {
			t.Error("merge must not mutate the base weights")
		}
	})
}

// TestLoadCalibration tests calibration file loading and fallback.
func TestLoadCalibration(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		w, err := LoadCalibration("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *w != *DefaultWeights() {
			t.Error("empty path should return defaults")
		}
	})

	t.Run("missing file returns defaults with error", func(t *testing.T) {
		w, err := LoadCalibration("/nonexistent/calibration.json")
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if *w != *DefaultWeights() {
			t.Error("missing file should fall back to defaults")
		}
	})

	t.Run("malformed json returns defaults with error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		w, err := LoadCalibration(path)
		if err == nil {
			t.Fatal("expected error for malformed file")
		}
		if *w != *DefaultWeights() {
			t.Error("malformed file should fall back to defaults")
		}
	})

	t.Run("valid partial calibration is merged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calibration.json")
		payload := `{
			"version": "2026-02",
			"weights": {
				"surprise": {"viral": 0.5, "quality": 0.5}
			}
		}`
		if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}

		w, err := LoadCalibration(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(w.Surprise.Viral-0.5) > scoreTolerance {
			t.Errorf("expected surprise viral 0.5, got %f", w.Surprise.Viral)
		}
		if w.Ratios != DefaultWeights().Ratios {
			t.Error("unspecified sections should keep defaults")
		}
	})

	t.Run("invalid calibration values return defaults with error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.json")
		payload := `{
			"weights": {
				"surprise": {"viral": 0.9, "quality": 0.9}
			}
		}`
		if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}

		w, err := LoadCalibration(path)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !errors.Is(err, ErrWeightsNotNormalized) {
			t.Errorf("expected %v, got %v", ErrWeightsNotNormalized, err)
		}
		if *w != *DefaultWeights() {
			t.Error("invalid calibration should fall back to defaults")
		}
	})
}
