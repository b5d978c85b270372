package contracts

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDataQualitySnapshot_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		snapshot DataQualitySnapshot
		want     bool
	}{
		{
			name: "valid snapshot",
			snapshot: DataQualitySnapshot{
				TotalAssets:  10,
				ValidAssets:  9,
				QualityScore: 0.9,
				Coverage:     map[Asset]float64{AssetSPX: 0.95, AssetGold: 0.90},
			},
			want: true,
		},
		{
			name: "low quality score",
			snapshot: DataQualitySnapshot{
				TotalAssets:  10,
				ValidAssets:  5,
				QualityScore: 0.5,
			},
			want: false,
		},
		{
			name: "no valid assets",
			snapshot: DataQualitySnapshot{
				TotalAssets:  10,
				ValidAssets:  0,
				QualityScore: 0.8,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snapshot.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDataQualitySnapshot_CoverageRate(t *testing.T) {
	snapshot := DataQualitySnapshot{
		TotalAssets: 3,
		ValidAssets: 3,
		Coverage: map[Asset]float64{
			AssetSPX:  0.95,
			AssetVIX:  0.90,
			AssetGold: 0.85,
		},
	}

	expected := (0.95 + 0.90 + 0.85) / 3
	if rate := snapshot.CoverageRate(); rate < expected-1e-12 || rate > expected+1e-12 {
		t.Errorf("CoverageRate() = %v, want %v", rate, expected)
	}
}

func TestDataQualitySnapshot_MissingAssets(t *testing.T) {
	snapshot := DataQualitySnapshot{
		Assets: []AssetCoverage{
			{Asset: AssetSPX, Observed: 10},
			{Asset: AssetGerman10Y, TickerAbsent: true, Missing: 10},
			{Asset: AssetGold, Observed: 8, Filled: 2},
		},
	}

	missing := snapshot.MissingAssets()
	if len(missing) != 1 || missing[0] != AssetGerman10Y {
		t.Errorf("MissingAssets() = %v, want [%s]", missing, AssetGerman10Y)
	}
}

func TestDataQualitySnapshot_JSON(t *testing.T) {
	original := DataQualitySnapshot{
		StartDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TotalAssets:  10,
		ValidAssets:  9,
		QualityScore: 0.9,
		Coverage: map[Asset]float64{
			AssetSPX: 0.95,
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded DataQualitySnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if decoded.ValidAssets != original.ValidAssets {
		t.Errorf("ValidAssets mismatch: got %d, want %d", decoded.ValidAssets, original.ValidAssets)
	}
	if decoded.Coverage[AssetSPX] != 0.95 {
		t.Errorf("Coverage mismatch: got %v", decoded.Coverage)
	}
}
