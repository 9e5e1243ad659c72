package index

const schemaVersion = 2

var dataTables = []string{"links", "item_tags", "tags", "items", "builds"}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS builds (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL DEFAULT '',
	base_path TEXT NOT NULL DEFAULT '',
	item_count INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL,
	slug TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	updated TEXT NOT NULL DEFAULT '',
	excerpt TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	unlisted INTEGER NOT NULL DEFAULT 0,
	noindex INTEGER NOT NULL DEFAULT 0,
	latest_log TEXT NOT NULL DEFAULT '',
	hash TEXT NOT NULL,
	UNIQUE(type, slug)
);

CREATE INDEX IF NOT EXISTS items_by_type_updated ON items(type, updated DESC, position);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS item_tags (
	item_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY(item_id, tag_id)
);

CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY,
	from_item_id INTEGER NOT NULL,
	to_slug TEXT NOT NULL,
	kind TEXT NOT NULL,
	UNIQUE(from_item_id, to_slug)
);

CREATE INDEX IF NOT EXISTS links_by_target ON links(to_slug);
`
