package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sprintly/core"
)

func TestScore_StrongMatch(t *testing.T) {
	score := Score(fintechInvestor(), "fintech seed dubai", 0.9)
	assert.Equal(t, 91.2, score)
	assert.Greater(t, score, 85.0)
}

func TestScore_WeakMatch(t *testing.T) {
	weak := Score(fintechInvestor(), "healthcare series a", 0.3)
	// sector 60, stage 65, geography 70, checkSize 75 plus baselines
	assert.Equal(t, 51.9, weak)
	assert.Less(t, weak, Score(fintechInvestor(), "fintech seed dubai", 0.9))
}

func TestScore_NoFactorsUsesSimilarityOnly(t *testing.T) {
	assert.Equal(t, 45.6, Score(&core.Entity{Name: "Sam"}, "fintech", 0.456))
}

func TestScore_RenormalizesOverPresentFactors(t *testing.T) {
	e := &core.Entity{SectorFocus: []string{"Fintech"}}
	// (0.35*100 + 0.10*70 + 0.10*75) / 0.55 = 90
	assert.Equal(t, 74.0, Score(e, "fintech", 0.5))
}

func TestScore_Clamped(t *testing.T) {
	assert.Equal(t, 100.0, Score(&core.Entity{}, "x", 1.7))
	assert.Equal(t, 0.0, Score(&core.Entity{}, "x", -0.2))
}

func TestWithBaselines(t *testing.T) {
	f := WithBaselines(Factors{FactorSector: 60})
	assert.Equal(t, 70.0, f[FactorTraction])
	assert.Equal(t, 75.0, f[FactorGraphProximity])
	assert.Equal(t, 60.0, f[FactorSector])

	kept := WithBaselines(Factors{FactorSector: 60, FactorTraction: 90})
	assert.Equal(t, 90.0, kept[FactorTraction])

	assert.Empty(t, WithBaselines(nil))
}

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name    string
		factors Factors
		want    float64
	}{
		{"empty", Factors{}, 0},
		{"single", Factors{FactorStage: 80}, 80},
		{"all six", Factors{
			FactorSector: 100, FactorStage: 100, FactorGeography: 100,
			FactorCheckSize: 75, FactorTraction: 70, FactorGraphProximity: 75,
		}, 92},
		{"unknown factor ignored", Factors{FactorStage: 80, "other": 10}, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WeightedAverage(tt.factors), 1e-9)
		})
	}
}

func TestRank(t *testing.T) {
	low := &core.Entity{Id: 1, Name: "Low"}
	strong := fintechInvestor()
	strong.Id = 2
	top := &core.Entity{Id: 3, Name: "Top"}

	matches := Rank([]Candidate{
		{Entity: low, Similarity: 0.2},
		{Entity: strong, Similarity: 0.9, Reasons: []string{"a", "b", "c", "d", "e"}},
		{Entity: top, Similarity: 0.95},
		{Entity: nil, Similarity: 1},
	}, "fintech seed dubai")

	require.Len(t, matches, 3)
	assert.Equal(t, core.ID(3), matches[0].Entity.Id)
	assert.Equal(t, 95.0, matches[0].Score)
	assert.Equal(t, core.ID(2), matches[1].Entity.Id)
	assert.Equal(t, 91.2, matches[1].Score)
	assert.Equal(t, core.ID(1), matches[2].Entity.Id)
	assert.Equal(t, 20.0, matches[2].Score)

	assert.Len(t, matches[1].Reasons, MaxReasons)
	assert.Equal(t, 70.0, matches[1].Factors[FactorTraction])
	assert.Equal(t, 75.0, matches[1].Factors[FactorGraphProximity])
	assert.Empty(t, matches[0].Factors)
}

func TestRank_SimilarityRoundedAndStable(t *testing.T) {
	a := &core.Entity{Id: 1}
	b := &core.Entity{Id: 2}

	matches := Rank([]Candidate{
		{Entity: a, Similarity: 0.12345},
		{Entity: b, Similarity: 0.12345},
	}, "")

	require.Len(t, matches, 2)
	assert.Equal(t, 0.123, matches[0].Similarity)
	assert.Equal(t, core.ID(1), matches[0].Entity.Id)
	assert.Equal(t, core.ID(2), matches[1].Entity.Id)
}
