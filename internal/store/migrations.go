package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                        INTEGER PRIMARY KEY,
	title                     TEXT NOT NULL,
	message                   TEXT NOT NULL,
	notification_type         TEXT NOT NULL,
	priority                  TEXT NOT NULL DEFAULT 'low',
	read                      INTEGER NOT NULL DEFAULT 0,
	requires_action           INTEGER NOT NULL DEFAULT 0,
	action_completed          INTEGER NOT NULL DEFAULT 0,
	requires_official_letter  INTEGER NOT NULL DEFAULT 0,
	official_letter_sent      INTEGER NOT NULL DEFAULT 0,
	official_letter_recipient TEXT NOT NULL DEFAULT '',
	recipient                 INTEGER,
	recipient_role            TEXT,
	created_at                DATETIME NOT NULL,
	url                       TEXT NOT NULL DEFAULT '',
	fetched_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_type ON notifications(notification_type);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
