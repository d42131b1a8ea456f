package gating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModuleScores_Current(t *testing.T) {
	r, err := ParseScoreRecord([]byte(`{"moduleScores":{"M2":{"correct":3,"total":4},"M1":{"correct":1,"total":3}}}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeCurrent, r.Shape())

	stats := NormalizeModuleScores(r)
	require.Len(t, stats, 2)
	assert.Equal(t, "M1", stats[0].ModuleID)
	assert.Equal(t, 33.33, stats[0].Percentage)
	assert.Equal(t, 75.0, stats[1].Percentage)
}

func TestNormalizeModuleScores_Legacy(t *testing.T) {
	r, err := ParseScoreRecord([]byte(`{"moduleTypeScores":{"pdf":{"score":9,"total":10},"video":{"score":12,"total":10}}}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, r.Shape())

	stats := NormalizeModuleScores(r)
	assert.Equal(t, []ModuleScoreStat{
		{ModuleID: "pdf", Correct: 9, Total: 10, Percentage: 90},
		{ModuleID: "video", Correct: 10, Total: 10, Percentage: 100},
	}, stats)
}

func TestNormalizeModuleScores_CurrentWinsOverLegacy(t *testing.T) {
	r := RawScoreRecord{
		ModuleScores:     map[string]ModuleScore{"M1": {Correct: 1, Total: 2}},
		ModuleTypeScores: map[string]LegacyModuleTypeScore{"old": {Score: 1, Total: 1}},
	}
	stats := NormalizeModuleScores(r)
	require.Len(t, stats, 1)
	assert.Equal(t, "M1", stats[0].ModuleID)
}

func TestNormalizeModuleScores_EmptyAndZeroTotals(t *testing.T) {
	r, err := ParseScoreRecord(nil)
	require.NoError(t, err)
	assert.Equal(t, ShapeEmpty, r.Shape())
	assert.Empty(t, NormalizeModuleScores(r))

	stats := NormalizeModuleScores(RawScoreRecord{ModuleScores: map[string]ModuleScore{"M": {Correct: 2, Total: 0}}})
	assert.Equal(t, 0.0, stats[0].Percentage)
	assert.Equal(t, 0, stats[0].Correct)
}

func TestAverageScore(t *testing.T) {
	stats := []ModuleScoreStat{{Correct: 1, Total: 4}, {Correct: 3, Total: 4}}
	assert.Equal(t, 50.0, AverageScore(stats))
	assert.Equal(t, 0.0, AverageScore(nil))
}

func TestClassifyTier(t *testing.T) {
	tiers := DefaultTiers()
	tests := []struct {
		pct  float64
		want string
	}{
		{-5, "Tier 1"},
		{0, "Tier 1"},
		{49.9, "Tier 1"},
		{50, "Tier 2"},
		{79.99, "Tier 2"},
		{80, "Tier 3"},
		{100, "Tier 3"},
		{130, "Tier 3"},
	}
	for _, tt := range tests {
		got, ok := ClassifyTier(tiers, tt.pct)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got.Name, "pct=%v", tt.pct)
	}

	_, ok := ClassifyTier(nil, 10)
	assert.False(t, ok)
}
