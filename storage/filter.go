package storage

import (
	"strings"

	"github.com/poiesic/sprintly/core"
)

// Matches reports whether entity satisfies every criterion set on f.
// Backends that cannot push the filter down to a query language use this.
func (f EntityFilter) Matches(entity *core.Entity) bool {
	if entity == nil {
		return false
	}
	if f.Role != "" && entity.Role != f.Role {
		return false
	}
	if f.Sector != "" && !containsFold(strings.Join(entity.SectorFocus, ","), f.Sector) {
		return false
	}
	if f.Stage != "" && !containsFold(strings.Join(entity.StageFocus, ","), f.Stage) {
		return false
	}
	if f.Location != "" && !containsFold(entity.Location, f.Location) {
		return false
	}
	if f.MinCheckSize > 0 && entity.CheckSizeMin != nil && *entity.CheckSizeMin > f.MinCheckSize {
		return false
	}
	if f.MaxCheckSize > 0 && entity.CheckSizeMax != nil && *entity.CheckSizeMax < f.MaxCheckSize {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
