package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the idempotent DDL for the hosted store. Shares are removed by
// trigger when their appointment or countdown is deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS accounts (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    owner_id    TEXT NOT NULL REFERENCES users(id),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS account_members (
    id          TEXT PRIMARY KEY,
    account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    role        TEXT NOT NULL DEFAULT 'viewer',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (account_id, user_id)
);

CREATE TABLE IF NOT EXISTS profiles (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    profile_type    TEXT NOT NULL DEFAULT 'relative',
    full_name       TEXT NOT NULL,
    preferred_name  TEXT,
    birthday        DATE,
    linked_user_id  TEXT,
    source_user_id  TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS appointments (
    id                TEXT PRIMARY KEY,
    account_id        TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    profile_id        TEXT REFERENCES profiles(id) ON DELETE SET NULL,
    title             TEXT NOT NULL,
    appointment_type  TEXT NOT NULL DEFAULT 'general',
    date              DATE NOT NULL,
    time              TIMESTAMPTZ,
    location          TEXT,
    is_completed      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS countdowns (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    title           TEXT NOT NULL,
    countdown_type  TEXT NOT NULL DEFAULT 'countdown',
    custom_type     TEXT,
    date            DATE NOT NULL,
    end_date        DATE,
    group_id        TEXT,
    notes           TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS medications (
    id          TEXT PRIMARY KEY,
    account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    profile_id  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    strength    TEXT,
    is_paused   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS medication_schedules (
    id             TEXT PRIMARY KEY,
    medication_id  TEXT NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
    schedule_type  TEXT NOT NULL DEFAULT 'scheduled',
    start_date     DATE NOT NULL,
    end_date       DATE,
    entries        JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS todo_lists (
    id          TEXT PRIMARY KEY,
    account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    list_type   TEXT,
    due_date    DATE
);

CREATE TABLE IF NOT EXISTS family_calendar_shares (
    id                 TEXT PRIMARY KEY,
    account_id         TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    event_id           TEXT NOT NULL,
    event_type         TEXT NOT NULL CHECK (event_type IN ('appointment', 'countdown')),
    shared_by_user_id  TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (event_type, event_id)
);

CREATE TABLE IF NOT EXISTS family_calendar_share_members (
    share_id        TEXT NOT NULL REFERENCES family_calendar_shares(id) ON DELETE CASCADE,
    member_user_id  TEXT NOT NULL,
    PRIMARY KEY (share_id, member_user_id)
);

CREATE OR REPLACE FUNCTION delete_event_shares() RETURNS trigger AS $$
BEGIN
    DELETE FROM family_calendar_shares WHERE event_id = OLD.id AND event_type = TG_ARGV[0];
    RETURN OLD;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_appointments_delete_shares ON appointments;
CREATE TRIGGER trg_appointments_delete_shares
AFTER DELETE ON appointments
FOR EACH ROW EXECUTE FUNCTION delete_event_shares('appointment');

DROP TRIGGER IF EXISTS trg_countdowns_delete_shares ON countdowns;
CREATE TRIGGER trg_countdowns_delete_shares
AFTER DELETE ON countdowns
FOR EACH ROW EXECUTE FUNCTION delete_event_shares('countdown');

CREATE TABLE IF NOT EXISTS notes (
    id                  TEXT PRIMARY KEY,
    account_id          TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    user_id             TEXT NOT NULL,
    local_id            TEXT NOT NULL,
    title               TEXT NOT NULL DEFAULT '',
    content             BYTEA,
    content_plain_text  TEXT NOT NULL DEFAULT '',
    theme               TEXT NOT NULL DEFAULT 'standard',
    is_pinned           BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL,
    deleted_at          TIMESTAMPTZ,
    UNIQUE (account_id, local_id)
);

CREATE INDEX IF NOT EXISTS idx_profiles_account_id ON profiles(account_id);
CREATE INDEX IF NOT EXISTS idx_appointments_account_id ON appointments(account_id);
CREATE INDEX IF NOT EXISTS idx_countdowns_account_id ON countdowns(account_id);
CREATE INDEX IF NOT EXISTS idx_medications_account_id ON medications(account_id);
CREATE INDEX IF NOT EXISTS idx_todo_lists_account_due ON todo_lists(account_id) WHERE due_date IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_share_members_user ON family_calendar_share_members(member_user_id);
CREATE INDEX IF NOT EXISTS idx_notes_account_updated ON notes(account_id, updated_at DESC) WHERE deleted_at IS NULL;
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
