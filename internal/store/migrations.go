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

CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	shared     INTEGER NOT NULL DEFAULT 0 CHECK(shared IN (0, 1)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	list_id      TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	text         TEXT NOT NULL,
	sort_order   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	completed_at DATETIME,
	started_at   DATETIME,
	hidden       INTEGER NOT NULL DEFAULT 0 CHECK(hidden IN (0, 1)),
	updated_at   DATETIME NOT NULL,
	CHECK(completed_at IS NULL OR started_at IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_lists_sort_order ON lists(sort_order);
CREATE INDEX IF NOT EXISTS idx_items_list_id ON items(list_id);
CREATE INDEX IF NOT EXISTS idx_items_list_order ON items(list_id, sort_order);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS pending_changes (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_kind TEXT NOT NULL CHECK(entity_kind IN ('list', 'item')),
	entity_id   TEXT NOT NULL,
	list_id     TEXT NOT NULL DEFAULT '',
	field       TEXT NOT NULL,
	changed_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_entity
	ON pending_changes(entity_kind, entity_id);

CREATE TABLE IF NOT EXISTS sync_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
