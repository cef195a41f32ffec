package match

import (
	"strings"

	"github.com/poiesic/sprintly/core"
)

const thesisSnippetLen = 100

// Reasons explains why entity surfaced for query. Sector, stage and location
// values containing a query token come first, then a thesis snippet and the
// company, up to MaxReasons entries.
func Reasons(entity *core.Entity, query string) []string {
	if entity == nil {
		return nil
	}
	q := ParseQuery(query)
	var reasons []string

	for _, sector := range entity.SectorFocus {
		if q.anyTokenIn(strings.ToLower(sector)) {
			reasons = append(reasons, "Sector focus: "+sector)
		}
	}
	for _, stage := range entity.StageFocus {
		if q.anyTokenIn(strings.ToLower(stage)) {
			reasons = append(reasons, "Stage: "+stage)
		}
	}
	if entity.Location != "" && q.anyTokenIn(strings.ToLower(entity.Location)) {
		reasons = append(reasons, "Location: "+entity.Location)
	}

	if entity.InvestmentThesis != "" && len(reasons) < 3 {
		reasons = append(reasons, "Thesis: "+truncateRunes(entity.InvestmentThesis, thesisSnippetLen)+"...")
	}
	if entity.Company != "" && len(reasons) < MaxReasons {
		reasons = append(reasons, "Company: "+entity.Company)
	}

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}
	return reasons
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
