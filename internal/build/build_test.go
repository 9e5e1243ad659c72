package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arbor/internal/content"
	"arbor/internal/index"
	fsutil "arbor/internal/storage/fs"
)

func writeSource(t *testing.T, root, rel, data string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	src := t.TempDir()
	writeSource(t, src, "blog/first.md", "---\ntitle: First\ndate: 2025-01-01\n---\nHello ![[photo.png]]")
	writeSource(t, src, "blog/second.md", "---\ntitle: Second\ndate: 2025-01-02\ntags: [essay]\n---\nSee [[first]] and [[ghost]].")
	writeSource(t, src, "blog/secret.md", "---\ntitle: Secret\ndate: 2025-01-03\nunlisted: true\n---\nAlso [[first]].")
	writeSource(t, src, "poem/verse.md", "---\ntitle: Verse\ndate: 2025-01-01\n---\none\ntwo\nthree")
	writeSource(t, src, "moments/m.md", "---\ndate: 2025-01-04\n---\nA moment")
	return Options{
		ContentPath: src,
		OutputPath:  filepath.Join(t.TempDir(), "dist"),
		BasePath:    content.DefaultBasePath,
		SiteDomain:  "0xsalome.github.io",
		LockTimeout: time.Second,
		Concurrency: 2,
	}
}

func TestRunWritesExports(t *testing.T) {
	opts := testOptions(t)
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Items != 5 || len(res.Dangling) != 1 || res.Dangling[0] != "ghost" {
		t.Fatalf("unexpected result %+v", res)
	}

	var blog []content.ContentItem
	readJSON(t, filepath.Join(opts.OutputPath, "content", "blog.json"), &blog)
	if len(blog) != 2 || blog[0].Slug != "second" || blog[1].Slug != "first" {
		t.Fatalf("unexpected blog listing %+v", blog)
	}

	var secret content.ContentItem
	readJSON(t, filepath.Join(opts.OutputPath, "content", "items", "blog", "secret.json"), &secret)
	if !secret.Unlisted || secret.Title != "Secret" {
		t.Fatalf("expected unlisted item to be exported, got %+v", secret)
	}

	var feed []content.ContentItem
	readJSON(t, filepath.Join(opts.OutputPath, "content", "feed.json"), &feed)
	if len(feed) != 3 || feed[0].Slug != "m" {
		t.Fatalf("unexpected feed %+v", feed)
	}

	var graph map[string][]content.Backlink
	readJSON(t, filepath.Join(opts.OutputPath, "content", "backlinks.json"), &graph)
	if got := graph["first"]; len(got) != 2 || got[0].Slug != "secret" || got[1].Slug != "second" {
		t.Fatalf("unexpected backlinks %+v", graph)
	}

	var blogIndex []map[string]any
	readJSON(t, filepath.Join(opts.OutputPath, "api", "blog-index.json"), &blogIndex)
	if len(blogIndex) != 2 {
		t.Fatalf("expected 2 index entries, got %d", len(blogIndex))
	}
	if _, ok := blogIndex[0]["content"]; ok {
		t.Fatalf("blog index should not carry content: %v", blogIndex[0])
	}

	css, err := os.ReadFile(filepath.Join(opts.OutputPath, filepath.FromSlash(HighlightCSSPath)))
	if err != nil || !strings.Contains(string(css), ".chroma") {
		t.Fatalf("expected highlight stylesheet, got %v", err)
	}

	idx, err := index.Open(filepath.Join(opts.OutputPath, SnapshotFileName))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer idx.Close()
	latest, err := idx.LatestBuild(context.Background())
	if err != nil {
		t.Fatalf("latest build: %v", err)
	}
	if latest.ID != res.BuildID.String() || latest.ItemCount != 5 {
		t.Fatalf("unexpected snapshot build %+v", latest)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	opts := testOptions(t)
	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.BuildID == second.BuildID {
		t.Fatalf("expected a fresh build id")
	}
	if second.Snapshot.Unchanged != 5 || second.Snapshot.Added != 0 {
		t.Fatalf("expected unchanged snapshot, got %+v", second.Snapshot)
	}
}

func TestRunWaitsForLock(t *testing.T) {
	opts := testOptions(t)
	opts.LockTimeout = 100 * time.Millisecond
	held, err := fsutil.AcquireFileLock(context.Background(), filepath.Join(opts.OutputPath, LockFileName))
	if err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	defer held.Release()

	if _, err := Run(context.Background(), opts); !errors.Is(err, fsutil.ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestRunMissingContentDirectory(t *testing.T) {
	opts := Options{
		ContentPath: filepath.Join(t.TempDir(), "nothing"),
		OutputPath:  t.TempDir(),
		BasePath:    content.DefaultBasePath,
	}
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Items != 0 {
		t.Fatalf("expected no items, got %d", res.Items)
	}
	var blog []content.ContentItem
	readJSON(t, filepath.Join(opts.OutputPath, "content", "blog.json"), &blog)
	if blog == nil || len(blog) != 0 {
		t.Fatalf("expected empty listing, got %#v", blog)
	}
}
