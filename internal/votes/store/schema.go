package store

// Schema is the idempotent DDL for the vote record table, applied at startup
// through postgres.Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS vote_records (
		id                UUID PRIMARY KEY,
		seq               BIGSERIAL NOT NULL,
		center_id         TEXT NOT NULL,
		center_name       TEXT NOT NULL DEFAULT '',
		district          TEXT NOT NULL DEFAULT '',
		thana             TEXT NOT NULL DEFAULT '',
		total_votes       BIGINT NOT NULL CHECK (total_votes >= 0),
		total_voters      BIGINT NOT NULL CHECK (total_voters >= total_votes),
		submitter_id      TEXT NOT NULL,
		submitter_name    TEXT NOT NULL,
		submitter_contact TEXT NOT NULL DEFAULT '',
		submitter_role    TEXT NOT NULL DEFAULT '',
		breakdown         JSONB NOT NULL DEFAULT '[]'::jsonb,
		submitted_at      TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL CHECK (status IN ('submitted', 'verified', 'rejected')),
		verifier_id       TEXT,
		verifier_name     TEXT,
		verifier_contact  TEXT,
		verifier_role     TEXT,
		verified_at       TIMESTAMPTZ,
		reason            TEXT NOT NULL DEFAULT '',
		correction_of     UUID REFERENCES vote_records (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_records_center ON vote_records (center_id, submitted_at, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_records_status ON vote_records (status, submitted_at, seq)`,
}
