package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"arbor/internal/content"
)

func TestCheckAssets(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "blog/post.md", "![[here.png]] ![[gone.png]] ![[my clip.mp4]] ![[it's.mp4]] ![ext](https://example.com/x.png)")
	writeSource(t, src, "moments/m.md", "![[snap.jpg]]")

	public := t.TempDir()
	for _, rel := range []string{"images/blog/here.png", "images/blog/my clip.mp4", "images/blog/it's.mp4", "images/moments/snap.jpg"} {
		full := filepath.Join(public, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	repo, err := LoadRepository(context.Background(), Options{ContentPath: src, BasePath: content.DefaultBasePath})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	missing, err := CheckAssets(repo, public)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected one missing asset, got %+v", missing)
	}
	got := missing[0]
	if got.Slug != "post" || got.Src != "/at-an-arbor/images/blog/gone.png" {
		t.Fatalf("unexpected missing asset %+v", got)
	}
	if got.Path != filepath.Join(public, "images", "blog", "gone.png") {
		t.Fatalf("unexpected path %q", got.Path)
	}
}
