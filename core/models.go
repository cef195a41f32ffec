package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for entities.
// Entity IDs come from database sequences; 0 means "not yet assigned".
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IdentityKey returns the hashed lookup key for an identity value (email or
// profile URL). Values are trimmed and lower-cased first so that lookups are
// case-insensitive. Returns 0 for empty values.
func IdentityKey(value string) ID {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0
	}
	return IDFromContent(value)
}

// Role classifies a person in the network.
type Role string

const (
	RoleFounder  Role = "founder"
	RoleInvestor Role = "investor"
	RoleEnabler  Role = "enabler"
	RoleOther    Role = "other"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleInvestor, RoleFounder, RoleEnabler, RoleOther}

// ParseRole maps free-form text to a Role. Unknown values map to RoleOther.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleFounder:
		return RoleFounder
	case RoleInvestor:
		return RoleInvestor
	case RoleEnabler:
		return RoleEnabler
	default:
		return RoleOther
	}
}

// Entity is a person in the network.
//
// Investor attributes (check sizes, thesis) are only meaningful when Role is
// RoleInvestor. Embedding is either nil or a complete vector.
type Entity struct {
	Id          ID
	FirstName   string
	LastName    string
	Name        string
	Email       string
	LinkedInURL string
	Company     string
	Position    string
	ConnectedOn time.Time

	Role             Role
	SectorFocus      []string
	StageFocus       []string
	Location         string
	CheckSizeMin     *int64
	CheckSizeMax     *int64
	InvestmentThesis string
	Tags             []string

	Embedding  []float32
	Confidence float64
	EnrichedAt time.Time // zero until enrichment ran

	InsertedAt time.Time
	UpdatedAt  time.Time
	Metadata   map[string]string // raw import columns
}

// DisplayName returns Name, falling back to "First Last".
func (e *Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// HasEmbedding reports whether the entity can take part in vector search.
func (e *Entity) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// EmbeddingText builds the text that represents the entity in vector space.
// Empty attributes are left out.
func (e *Entity) EmbeddingText() string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("Name", e.DisplayName())
	add("Company", e.Company)
	add("Position", e.Position)
	add("Role", string(e.Role))
	add("Sectors", strings.Join(e.SectorFocus, ", "))
	add("Stages", strings.Join(e.StageFocus, ", "))
	add("Thesis", e.InvestmentThesis)
	add("Location", e.Location)
	return strings.Join(parts, " | ")
}

// Summary returns the denormalized view attached to graph results.
func (e *Entity) Summary() NodeSummary {
	return NodeSummary{
		Id:          e.Id,
		Name:        e.DisplayName(),
		Role:        e.Role,
		Company:     e.Company,
		Position:    e.Position,
		LinkedInURL: e.LinkedInURL,
	}
}

// NodeSummary is the subset of entity attributes returned with intro paths
// and mutual connections.
type NodeSummary struct {
	Id          ID
	Name        string
	Role        Role
	Company     string
	Position    string
	LinkedInURL string
}

// RelConnectedTo is the relationship type created between an owner and each
// imported connection.
const RelConnectedTo = "CONNECTED_TO"

// Connection is a typed, weighted edge between two entities.
// It is directed at creation but treated as symmetric by traversals.
type Connection struct {
	Source    ID
	Target    ID
	Type      string
	Strength  float64
	CreatedAt time.Time
}

// Other returns the endpoint opposite to id.
func (c *Connection) Other(id ID) ID {
	if c.Source == id {
		return c.Target
	}
	return c.Source
}

// Checkpoint records how far a resumable batch job has progressed.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}
