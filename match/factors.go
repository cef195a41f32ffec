package match

import (
	"math"
	"strings"

	"github.com/poiesic/sprintly/core"
)

// Factor names one axis of match quality.
type Factor string

const (
	FactorSector         Factor = "sector"
	FactorStage          Factor = "stage"
	FactorGeography      Factor = "geography"
	FactorCheckSize      Factor = "checkSize"
	FactorTraction       Factor = "traction"
	FactorGraphProximity Factor = "graph_proximity"
)

// Factors maps factor names to scores in [0,100]. A missing key means the
// factor does not apply, which is different from a score of zero.
type Factors map[Factor]float64

// Score constants for the individual factor rules.
const (
	exactScore = 100.0

	sectorTokenBase  = 70.0
	sectorTokenRange = 30.0
	sectorDefault    = 60.0

	stageSynonymScore = 95.0
	stageTokenScore   = 75.0
	stageDefault      = 65.0

	regionScore      = 95.0
	geoTokenScore    = 80.0
	geographyDefault = 70.0
	checkSizeDefault = 75.0
)

type aliasGroup struct {
	name    string
	aliases []string
}

// stageSynonyms groups spellings of the same funding stage.
var stageSynonyms = []aliasGroup{
	{"pre-seed", []string{"pre-seed", "preseed", "pre seed"}},
	{"seed", []string{"seed"}},
	{"series-a", []string{"series a", "series-a", "seriesa"}},
	{"series-b", []string{"series b", "series-b", "seriesb"}},
	{"growth", []string{"growth", "late stage", "late-stage"}},
}

// regionAliases groups names for the same geography.
var regionAliases = []aliasGroup{
	{"mena", []string{"mena", "middle east", "north africa"}},
	{"gcc", []string{"gcc", "gulf", "gulf cooperation council"}},
	{"dubai", []string{"dubai", "uae", "emirates"}},
	{"riyadh", []string{"riyadh", "saudi", "ksa", "saudi arabia"}},
	{"egypt", []string{"egypt", "cairo"}},
	{"us", []string{"usa", "us", "united states", "america"}},
	{"uk", []string{"uk", "united kingdom", "london", "britain"}},
	{"europe", []string{"europe", "eu", "european"}},
}

func (g aliasGroup) matches(s string) bool {
	for _, alias := range g.aliases {
		if strings.Contains(s, alias) {
			return true
		}
	}
	return false
}

// ComputeFactors scores entity against query along sector, stage, geography
// and check size. Only factors backed by an entity attribute are returned.
func ComputeFactors(entity *core.Entity, query string) Factors {
	return computeFactors(entity, ParseQuery(query))
}

func computeFactors(entity *core.Entity, q Query) Factors {
	factors := make(Factors, 4)
	if entity == nil {
		return factors
	}
	if score, ok := sectorScore(entity.SectorFocus, q); ok {
		factors[FactorSector] = round1(score)
	}
	if score, ok := stageScore(entity.StageFocus, q); ok {
		factors[FactorStage] = round1(score)
	}
	if score, ok := geographyScore(entity.Location, q); ok {
		factors[FactorGeography] = round1(score)
	}
	if entity.CheckSizeMin != nil || entity.CheckSizeMax != nil {
		factors[FactorCheckSize] = checkSizeDefault
	}
	return factors
}

func sectorScore(sectors []string, q Query) (float64, bool) {
	sectors = nonBlank(sectors)
	if len(sectors) == 0 {
		return 0, false
	}

	best := 0.0
	matched := false
	for _, sector := range sectors {
		s := strings.ToLower(sector)
		if strings.Contains(q.text, s) {
			return exactScore, true
		}
		if n, total := q.overlap(s); n > 0 {
			best = math.Max(best, sectorTokenBase+sectorTokenRange*float64(n)/float64(total))
			matched = true
		}
	}
	if !matched {
		return sectorDefault, true
	}
	return best, true
}

func stageScore(stages []string, q Query) (float64, bool) {
	stages = nonBlank(stages)
	if len(stages) == 0 {
		return 0, false
	}

	best := 0.0
	for _, stage := range stages {
		s := strings.ToLower(stage)
		if strings.Contains(q.text, s) || strings.Contains(s, q.text) {
			return exactScore, true
		}
		for _, group := range stageSynonyms {
			if group.matches(s) && group.matches(q.text) {
				return stageSynonymScore, true
			}
		}
		if n, _ := q.overlap(s); n > 0 {
			best = stageTokenScore
		}
	}
	if best == 0 {
		return stageDefault, true
	}
	return best, true
}

func geographyScore(location string, q Query) (float64, bool) {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return 0, false
	}

	if strings.Contains(q.text, loc) || strings.Contains(loc, q.text) {
		return exactScore, true
	}
	for _, region := range regionAliases {
		if region.matches(loc) && region.matches(q.text) {
			return regionScore, true
		}
	}
	if n, _ := q.overlap(loc); n > 0 {
		return geoTokenScore, true
	}
	return geographyDefault, true
}

func nonBlank(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
