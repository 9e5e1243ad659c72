package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"arbor/internal/content"
	fsutil "arbor/internal/storage/fs"
)

const HighlightCSSPath = "styles/chroma.css"

// IndexEntry is one row of api/blog-index.json.
type IndexEntry struct {
	Slug    string       `json:"slug"`
	Title   string       `json:"title"`
	Date    string       `json:"date"`
	Updated string       `json:"updated"`
	Type    content.Type `json:"type"`
	Excerpt string       `json:"excerpt"`
}

type exportFile struct {
	rel  string
	data []byte
}

// Export writes the JSON listings, one file per item, the backlink graph,
// the blog index and the code highlighting stylesheet under outDir. Every
// file is replaced atomically.
func Export(ctx context.Context, outDir string, repo *content.Repository, renderer *content.Renderer) error {
	files, err := exportFiles(repo)
	if err != nil {
		return err
	}
	if renderer != nil {
		var css bytes.Buffer
		if err := renderer.WriteHighlightCSS(&css); err != nil {
			return fmt.Errorf("highlight css: %w", err)
		}
		files = append(files, exportFile{rel: HighlightCSSPath, data: css.Bytes()})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, f := range files {
		f := f
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			full, err := fsutil.JoinUnder(outDir, f.rel)
			if err != nil {
				return fmt.Errorf("%s: %w", f.rel, err)
			}
			if err := fsutil.WriteFileAtomic(full, f.data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", f.rel, err)
			}
			return nil
		})
	}
	return group.Wait()
}

func exportFiles(repo *content.Repository) ([]exportFile, error) {
	var files []exportFile
	add := func(rel string, v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", rel, err)
		}
		files = append(files, exportFile{rel: rel, data: append(data, '\n')})
		return nil
	}

	listings := []struct {
		rel   string
		items []content.ContentItem
	}{
		{"content/blog.json", repo.Blog()},
		{"content/poems.json", repo.Poems()},
		{"content/moments.json", repo.Moments()},
		{"content/feed.json", repo.Feed()},
	}
	for _, l := range listings {
		if err := add(l.rel, l.items); err != nil {
			return nil, err
		}
	}

	for _, t := range content.Types {
		seen := make(map[string]struct{})
		for _, item := range repo.All(t) {
			if _, dup := seen[item.Slug]; dup {
				slog.Warn("duplicate slug", "type", t, "slug", item.Slug)
				continue
			}
			seen[item.Slug] = struct{}{}
			if !fsutil.ValidSlug(item.Slug) {
				slog.Warn("skip item with unsafe slug", "type", t, "slug", item.Slug)
				continue
			}
			canonical, _ := repo.BySlug(item.Slug, t)
			rel := path.Join("content/items", string(t), item.Slug+".json")
			if err := add(rel, canonical); err != nil {
				return nil, err
			}
		}
	}

	if err := add("content/backlinks.json", repo.BacklinkGraph()); err != nil {
		return nil, err
	}
	if err := add("api/blog-index.json", BlogIndex(repo)); err != nil {
		return nil, err
	}
	return files, nil
}

// BlogIndex lists public blog posts, newest first.
func BlogIndex(repo *content.Repository) []IndexEntry {
	posts := repo.Blog()
	out := make([]IndexEntry, 0, len(posts))
	for _, p := range posts {
		out = append(out, IndexEntry{
			Slug:    p.Slug,
			Title:   p.Title,
			Date:    p.Date,
			Updated: p.Updated,
			Type:    p.Type,
			Excerpt: p.Excerpt,
		})
	}
	return out
}
