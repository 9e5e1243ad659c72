package fs

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNormalizeRelPath(t *testing.T) {
	cases := []struct {
		in    string
		ok    bool
		clean string
	}{
		{"blog.json", true, "blog.json"},
		{"items/blog/post.json", true, "items/blog/post.json"},
		{"../post.json", false, ""},
		{"/abs.json", false, ""},
		{"items/../post.json", true, "post.json"},
		{"..", false, ""},
		{"..notes/a.json", true, "..notes/a.json"},
	}

	for _, c := range cases {
		got, err := NormalizeRelPath(c.in)
		if c.ok && err != nil {
			t.Fatalf("expected ok for %q, got %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("expected err for %q", c.in)
		}
		if c.ok && got != c.clean {
			t.Fatalf("expected %q -> %q, got %q", c.in, c.clean, got)
		}
	}
}

func TestJoinUnder(t *testing.T) {
	root := t.TempDir()
	got, err := JoinUnder(root, "content/items/blog/a.json")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if want := filepath.Join(root, "content", "items", "blog", "a.json"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if _, err := JoinUnder(root, "content/../../etc/passwd"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected unsafe path, got %v", err)
	}
}

func TestValidSlug(t *testing.T) {
	cases := map[string]bool{
		"my-post":    true,
		"日記":         true,
		"with space": true,
		"":           false,
		"..":         false,
		"a/b":        false,
		"a\\b":       false,
	}
	for slug, want := range cases {
		if got := ValidSlug(slug); got != want {
			t.Fatalf("%q: expected %v, got %v", slug, want, got)
		}
	}
}
