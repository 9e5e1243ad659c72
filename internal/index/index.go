package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"arbor/internal/content"
)

const defaultLockTimeout = 5 * time.Second

// Index is a queryable sqlite snapshot of one build.
type Index struct {
	db          *sql.DB
	lockTimeout time.Duration
}

type Record struct {
	Type      content.Type
	Slug      string
	Title     string
	Date      string
	Updated   string
	Excerpt   string
	Content   string
	Unlisted  bool
	NoIndex   bool
	LatestLog string
	Hash      string
	Tags      []string
}

type TagSummary struct {
	Name  string
	Count int
}

type BuildInfo struct {
	ID         string
	Version    string
	BasePath   string
	ItemCount  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RebuildStats compares the new snapshot against the one it replaced.
type RebuildStats struct {
	Added     int
	Changed   int
	Unchanged int
	Removed   int
}

type itemKey struct {
	typ  content.Type
	slug string
}

func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Index{db: db, lockTimeout: defaultLockTimeout}, nil
}

func (i *Index) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

// Init creates the schema. A snapshot written by another schema version is
// dropped and recreated empty.
func (i *Index) Init(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	version, err := i.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version == schemaVersion {
		return nil
	}
	for _, table := range dataTables {
		if _, err := i.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	if _, err := i.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	return i.setSchemaVersion(ctx, schemaVersion)
}

func (i *Index) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := i.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (i *Index) setSchemaVersion(ctx context.Context, v int) error {
	_, err := i.db.ExecContext(ctx, "DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = i.db.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", v)
	return err
}

// Rebuild replaces the whole snapshot with repo inside one transaction.
func (i *Index) Rebuild(ctx context.Context, build BuildInfo, repo *content.Repository) (RebuildStats, error) {
	var stats RebuildStats
	previous, err := i.loadHashes(ctx)
	if err != nil {
		return stats, err
	}

	tx, start, err := i.beginTx(ctx, "rebuild")
	if err != nil {
		return stats, err
	}
	defer i.rollbackTx(tx, "rebuild", start)

	for _, stmt := range []string{
		"DELETE FROM links",
		"DELETE FROM item_tags",
		"DELETE FROM tags",
		"DELETE FROM items",
		"DELETE FROM builds",
	} {
		if _, err := i.execContextTx(ctx, tx, stmt); err != nil {
			return stats, err
		}
	}

	extractor := content.NewLinkExtractor(repo.BasePath())
	tagIDs := make(map[string]int64)
	for _, typ := range content.Types {
		for pos, item := range repo.All(typ) {
			hash := ContentHash([]byte(item.Source))
			res, err := i.execContextTx(ctx, tx, `
				INSERT OR IGNORE INTO items(type, slug, position, title, date, updated, excerpt, content, unlisted, noindex, latest_log, hash)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				string(typ), item.Slug, pos, item.Title, item.Date, item.Updated, item.Excerpt, item.Content,
				boolInt(item.Unlisted), boolInt(item.NoIndex), item.LatestLog, hash,
			)
			if err != nil {
				return stats, fmt.Errorf("insert %s/%s: %w", typ, item.Slug, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			key := itemKey{typ: typ, slug: item.Slug}
			if old, ok := previous[key]; !ok {
				stats.Added++
			} else if old == hash && hashMatchesBuildVersion(old) {
				stats.Unchanged++
			} else {
				stats.Changed++
			}
			delete(previous, key)
			itemID, err := res.LastInsertId()
			if err != nil {
				return stats, err
			}
			if err := i.insertTags(ctx, tx, itemID, item.Tags, tagIDs); err != nil {
				return stats, err
			}
			if typ != content.TypeBlog {
				continue
			}
			for _, link := range extractor.Extract(item.Source) {
				if _, err := i.execContextTx(ctx, tx,
					"INSERT OR IGNORE INTO links(from_item_id, to_slug, kind) VALUES(?, ?, ?)",
					itemID, link.Target, link.Kind,
				); err != nil {
					return stats, err
				}
			}
		}
	}
	stats.Removed = len(previous)

	if _, err := i.execContextTx(ctx, tx, `
		INSERT INTO builds(id, version, base_path, item_count, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		build.ID, buildVersion, repo.BasePath(), repo.Len(), build.StartedAt.Unix(), time.Now().Unix(),
	); err != nil {
		return stats, err
	}
	return stats, i.commitTx(tx, "rebuild", start)
}

func (i *Index) insertTags(ctx context.Context, tx *sql.Tx, itemID int64, tags []string, cache map[string]int64) error {
	for pos, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tagID, ok := cache[tag]
		if !ok {
			if _, err := i.execContextTx(ctx, tx, "INSERT OR IGNORE INTO tags(name) VALUES(?)", tag); err != nil {
				return err
			}
			if err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name=?", tag).Scan(&tagID); err != nil {
				return err
			}
			cache[tag] = tagID
		}
		if _, err := i.execContextTx(ctx, tx, "INSERT OR IGNORE INTO item_tags(item_id, tag_id, position) VALUES(?, ?, ?)", itemID, tagID, pos); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) loadHashes(ctx context.Context) (map[itemKey]string, error) {
	rows, err := i.queryContext(ctx, "SELECT type, slug, hash FROM items")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[itemKey]string)
	for rows.Next() {
		var typ, slug, hash string
		if err := rows.Scan(&typ, &slug, &hash); err != nil {
			return nil, err
		}
		out[itemKey{typ: content.Type(typ), slug: slug}] = hash
	}
	return out, rows.Err()
}

const recordColumns = "type, slug, title, date, updated, excerpt, content, unlisted, noindex, latest_log, hash"

// Items lists one type newest first, in the same order as the Repository.
func (i *Index) Items(ctx context.Context, typ content.Type, publicOnly bool) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM items WHERE type=?"
	if publicOnly {
		query += " AND unlisted=0"
	}
	query += " ORDER BY position ASC"
	rows, err := i.queryContext(ctx, query, string(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Item returns content.ErrNotFound when no item has that slug.
func (i *Index) Item(ctx context.Context, typ content.Type, slug string) (Record, error) {
	row := i.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM items WHERE type=? AND slug=?", string(typ), slug)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, content.ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rows, err := i.queryContext(ctx, `
		SELECT tags.name FROM item_tags
		JOIN tags ON tags.id = item_tags.tag_id
		JOIN items ON items.id = item_tags.item_id
		WHERE items.type=? AND items.slug=?
		ORDER BY item_tags.position`, string(typ), slug)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return Record{}, err
		}
		rec.Tags = append(rec.Tags, tag)
	}
	return rec, rows.Err()
}

// Backlinks lists blog posts linking to slug, newest first, never nil.
func (i *Index) Backlinks(ctx context.Context, slug string) ([]content.Backlink, error) {
	rows, err := i.queryContext(ctx, `
		SELECT items.slug, items.title, items.updated
		FROM links
		JOIN items ON items.id = links.from_item_id
		WHERE links.to_slug = ? AND items.type = ?
		ORDER BY items.position ASC`, slug, string(content.TypeBlog))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []content.Backlink{}
	for rows.Next() {
		var bl content.Backlink
		if err := rows.Scan(&bl.Slug, &bl.Title, &bl.Updated); err != nil {
			return nil, err
		}
		out = append(out, bl)
	}
	return out, rows.Err()
}

func (i *Index) ListTags(ctx context.Context, limit int) ([]TagSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := i.queryContext(ctx, `
		SELECT tags.name, COUNT(item_tags.item_id)
		FROM tags
		LEFT JOIN item_tags ON tags.id = item_tags.tag_id
		GROUP BY tags.id
		ORDER BY tags.name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagSummary
	for rows.Next() {
		var t TagSummary
		if err := rows.Scan(&t.Name, &t.Count); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// LatestBuild returns content.ErrNotFound on an empty snapshot.
func (i *Index) LatestBuild(ctx context.Context) (BuildInfo, error) {
	var b BuildInfo
	var started, finished int64
	err := i.db.QueryRowContext(ctx, `
		SELECT id, version, base_path, item_count, started_at, finished_at
		FROM builds ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&b.ID, &b.Version, &b.BasePath, &b.ItemCount, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildInfo{}, content.ErrNotFound
	}
	if err != nil {
		return BuildInfo{}, err
	}
	b.StartedAt = time.Unix(started, 0).UTC()
	b.FinishedAt = time.Unix(finished, 0).UTC()
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var typ string
	var unlisted, noindex int
	err := row.Scan(&typ, &rec.Slug, &rec.Title, &rec.Date, &rec.Updated, &rec.Excerpt, &rec.Content,
		&unlisted, &noindex, &rec.LatestLog, &rec.Hash)
	if err != nil {
		return Record{}, err
	}
	rec.Type = content.Type(typ)
	rec.Unlisted = unlisted != 0
	rec.NoIndex = noindex != 0
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
