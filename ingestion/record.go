package ingestion

import (
	"strings"
	"time"

	"github.com/poiesic/sprintly/core"
)

// Record is one raw contact as it arrives from an export.
type Record struct {
	FirstName   string
	LastName    string
	Email       string
	LinkedInURL string
	Company     string
	Position    string
	ConnectedOn time.Time

	// Raw holds the original columns of the row.
	Raw map[string]string
}

// Name returns "First Last".
func (r Record) Name() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// entity converts the record to an unclassified entity.
func (r Record) entity() *core.Entity {
	return &core.Entity{
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		Name:        r.Name(),
		Email:       strings.TrimSpace(r.Email),
		LinkedInURL: strings.TrimSpace(r.LinkedInURL),
		Company:     strings.TrimSpace(r.Company),
		Position:    strings.TrimSpace(r.Position),
		ConnectedOn: r.ConnectedOn,
		Metadata:    r.Raw,
	}
}
