package match

import (
	"math"
	"slices"

	"github.com/poiesic/sprintly/core"
)

// Baselines for factors that cannot be derived from query text.
const (
	BaselineTraction       = 70.0
	BaselineGraphProximity = 75.0
)

// Weights is the relative importance of each factor. Weights of absent
// factors are dropped and the rest renormalized.
var Weights = map[Factor]float64{
	FactorSector:         0.35,
	FactorStage:          0.20,
	FactorGeography:      0.15,
	FactorCheckSize:      0.10,
	FactorTraction:       0.10,
	FactorGraphProximity: 0.10,
}

const (
	similarityWeight = 0.4
	factorWeight     = 0.6
)

// MaxReasons caps the reasons attached to a match.
const MaxReasons = 4

// Candidate is a retrieval hit awaiting ranking.
type Candidate struct {
	Entity     *core.Entity
	Similarity float64
	Reasons    []string
}

// Match is a ranked result.
type Match struct {
	Entity *core.Entity
	// Score is the blended match score in [0,100].
	Score float64
	// Similarity is the vector similarity rounded to three decimals.
	Similarity float64
	// Factors holds the factors that contributed to Score, baselines included.
	Factors Factors
	Reasons []string
}

// Score returns the overall match score in [0,100] for entity given the
// query and a vector similarity in [0,1].
func Score(entity *core.Entity, query string, similarity float64) float64 {
	score, _ := scoreWithFactors(entity, ParseQuery(query), similarity)
	return score
}

// WithBaselines returns a copy of factors with traction and graph proximity
// filled in. An empty factor set stays empty.
func WithBaselines(factors Factors) Factors {
	if len(factors) == 0 {
		return Factors{}
	}
	out := make(Factors, len(factors)+2)
	for k, v := range factors {
		out[k] = v
	}
	if _, ok := out[FactorTraction]; !ok {
		out[FactorTraction] = BaselineTraction
	}
	if _, ok := out[FactorGraphProximity]; !ok {
		out[FactorGraphProximity] = BaselineGraphProximity
	}
	return out
}

// WeightedAverage averages factors using Weights renormalized over the
// factors present. Unknown factor names carry no weight.
func WeightedAverage(factors Factors) float64 {
	var sum, total float64
	for name, score := range factors {
		w := Weights[name]
		sum += score * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func scoreWithFactors(entity *core.Entity, q Query, similarity float64) (float64, Factors) {
	base := similarity * 100
	factors := computeFactors(entity, q)
	if len(factors) == 0 {
		return round1(clamp(base)), factors
	}

	factors = WithBaselines(factors)
	final := similarityWeight*base + factorWeight*WeightedAverage(factors)
	return round1(clamp(final)), factors
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Rank scores each candidate against query and orders them by score,
// highest first. Equal scores keep their input order.
func Rank(candidates []Candidate, query string) []Match {
	q := ParseQuery(query)
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Entity == nil {
			continue
		}
		score, factors := scoreWithFactors(c.Entity, q, c.Similarity)
		reasons := c.Reasons
		if len(reasons) > MaxReasons {
			reasons = reasons[:MaxReasons]
		}
		matches = append(matches, Match{
			Entity:     c.Entity,
			Score:      score,
			Similarity: round3(c.Similarity),
			Factors:    factors,
			Reasons:    reasons,
		})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return matches
}
