package postgres

import "fmt"

// schemaSQL creates the tables used by EntityRepository. Identity uniqueness
// is enforced on the normalized (trimmed, lower-cased) email and URL.
func schemaSQL(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS entities (
	id                BIGSERIAL PRIMARY KEY,
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	company           TEXT NOT NULL DEFAULT '',
	position          TEXT NOT NULL DEFAULT '',
	connected_on      TIMESTAMPTZ,
	role              TEXT NOT NULL DEFAULT 'other',
	sector_focus      TEXT[] NOT NULL DEFAULT '{}',
	stage_focus       TEXT[] NOT NULL DEFAULT '{}',
	location          TEXT NOT NULL DEFAULT '',
	check_size_min    BIGINT,
	check_size_max    BIGINT,
	investment_thesis TEXT NOT NULL DEFAULT '',
	tags              TEXT[] NOT NULL DEFAULT '{}',
	embedding         vector(%d),
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	enriched_at       TIMESTAMPTZ,
	inserted_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	metadata          JSONB
);

CREATE UNIQUE INDEX IF NOT EXISTS entities_email_key
	ON entities (lower(btrim(email))) WHERE btrim(email) <> '';
CREATE UNIQUE INDEX IF NOT EXISTS entities_linkedin_url_key
	ON entities (lower(btrim(linkedin_url))) WHERE btrim(linkedin_url) <> '';
CREATE INDEX IF NOT EXISTS entities_role_idx ON entities (role);

CREATE TABLE IF NOT EXISTS connections (
	source_id  BIGINT NOT NULL REFERENCES entities (id) ON DELETE CASCADE,
	target_id  BIGINT NOT NULL REFERENCES entities (id) ON DELETE CASCADE,
	rel_type   TEXT NOT NULL,
	strength   DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source_id, target_id)
);

CREATE INDEX IF NOT EXISTS connections_target_idx ON connections (target_id);
`, dimensions)
}
