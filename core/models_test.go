package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestIdentityKey(t *testing.T) {
	if IdentityKey("") != 0 || IdentityKey("   ") != 0 {
		t.Errorf("IdentityKey() should be 0 for blank values")
	}
	if IdentityKey("Jane@Example.com ") != IdentityKey("jane@example.com") {
		t.Errorf("IdentityKey() should ignore case and surrounding whitespace")
	}
	if IdentityKey("jane@example.com") == IdentityKey("john@example.com") {
		t.Errorf("IdentityKey() produced same key for different values")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"investor", RoleInvestor},
		{"Founder", RoleFounder},
		{" enabler ", RoleEnabler},
		{"other", RoleOther},
		{"angel", RoleOther},
		{"", RoleOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseRole(tt.in); got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEntity_DisplayNameAndSummary(t *testing.T) {
	e := &Entity{
		Id:          7,
		FirstName:   "Jane",
		LastName:    "Doe",
		Role:        RoleInvestor,
		Company:     "Acme Ventures",
		Position:    "Partner",
		LinkedInURL: "https://linkedin.com/in/janedoe",
		Embedding:   []float32{0.1},
	}

	if got := e.DisplayName(); got != "Jane Doe" {
		t.Errorf("DisplayName() = %q, want %q", got, "Jane Doe")
	}

	s := e.Summary()
	want := NodeSummary{
		Id:          7,
		Name:        "Jane Doe",
		Role:        RoleInvestor,
		Company:     "Acme Ventures",
		Position:    "Partner",
		LinkedInURL: "https://linkedin.com/in/janedoe",
	}
	if s != want {
		t.Errorf("Summary() = %+v, want %+v", s, want)
	}

	e.Name = "J. Doe"
	if got := e.DisplayName(); got != "J. Doe" {
		t.Errorf("DisplayName() = %q, want full name to win", got)
	}
	if !e.HasEmbedding() {
		t.Errorf("HasEmbedding() = false, want true")
	}
}

func TestConnection_Other(t *testing.T) {
	c := &Connection{Source: 1, Target: 2}
	if c.Other(1) != 2 || c.Other(2) != 1 {
		t.Errorf("Other() returned wrong endpoint")
	}
}

func TestEntity_EmbeddingText(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   string
	}{
		{
			name: "all fields",
			entity: Entity{
				FirstName:        "Omar",
				LastName:         "Said",
				Company:          "Nile Capital",
				Position:         "Partner",
				Role:             RoleInvestor,
				SectorFocus:      []string{"Fintech", "AI"},
				StageFocus:       []string{"Seed"},
				InvestmentThesis: "Payments rails",
				Location:         "Cairo",
			},
			want: "Name: Omar Said | Company: Nile Capital | Position: Partner | Role: investor | " +
				"Sectors: Fintech, AI | Stages: Seed | Thesis: Payments rails | Location: Cairo",
		},
		{
			name:   "empty parts omitted",
			entity: Entity{Name: "Ana", Role: RoleOther},
			want:   "Name: Ana | Role: other",
		},
		{
			name:   "nothing set",
			entity: Entity{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entity.EmbeddingText(); got != tt.want {
				t.Errorf("EmbeddingText() = %q, want %q", got, tt.want)
			}
		})
	}
}
