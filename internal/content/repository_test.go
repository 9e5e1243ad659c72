package content

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func newTestAssembler() *Assembler {
	return NewAssembler(NewResolver(DefaultBasePath), newTestRenderer())
}

func slugs(items []ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Slug)
	}
	return out
}

func TestAssembleBlogPost(t *testing.T) {
	raw := strings.Join([]string{
		"---",
		"title: First post",
		"date: 2025-01-01",
		"updated: 2025-01-05",
		"tags:",
		"  - essay",
		"noindex: true",
		"latestLog: added photo",
		"---",
		"Intro with ![[photo.png]] and [[second]].",
		"",
		"More text.",
	}, "\n")
	item := newTestAssembler().Assemble("blog/first-post.md", raw, TypeBlog)
	if item.Slug != "first-post" || item.Title != "First post" {
		t.Fatalf("unexpected identity %q %q", item.Slug, item.Title)
	}
	if item.Date != "2025-01-01" || item.Updated != "2025-01-05" {
		t.Fatalf("unexpected dates %q %q", item.Date, item.Updated)
	}
	if !reflect.DeepEqual(item.Tags, []string{"essay"}) || !item.NoIndex || item.Unlisted {
		t.Fatalf("unexpected flags %+v", item)
	}
	if item.LatestLog != "added photo" {
		t.Fatalf("unexpected latest log %q", item.LatestLog)
	}
	if !strings.Contains(item.RawContent, "![](/at-an-arbor/images/blog/photo.png)") ||
		!strings.Contains(item.RawContent, "[second](/at-an-arbor/blog/second)") {
		t.Fatalf("expected resolved raw content, got %q", item.RawContent)
	}
	if !strings.Contains(item.Source, "[[second]]") {
		t.Fatalf("expected source to keep wiki-links, got %q", item.Source)
	}
	if !reflect.DeepEqual(item.Images, []string{"/at-an-arbor/images/blog/photo.png"}) {
		t.Fatalf("unexpected images %v", item.Images)
	}
	if item.Excerpt != "Intro with  and [second](/at-an-arbor/blog/second)." {
		t.Fatalf("unexpected excerpt %q", item.Excerpt)
	}
	if !strings.Contains(item.Content, `class="wikilink"`) || !strings.Contains(item.Content, `loading="lazy"`) {
		t.Fatalf("unexpected content %s", item.Content)
	}
}

func TestAssembleDefaults(t *testing.T) {
	a := newTestAssembler()
	blog := a.Assemble("blog/no-meta.md", "just text", TypeBlog)
	if blog.Title != "no-meta" || blog.Date != "" || blog.Updated != "" {
		t.Fatalf("unexpected defaults %+v", blog)
	}
	if !reflect.DeepEqual(blog.Tags, []string{"blog"}) {
		t.Fatalf("expected default blog tag, got %v", blog.Tags)
	}
	poem := a.Assemble("poem/p.md", "---\ndate: 2024-03-01\nunlisted: 'true'\n---\nline", TypePoem)
	if poem.Updated != "2024-03-01" || !poem.Unlisted || poem.Tags != nil {
		t.Fatalf("unexpected poem defaults %+v", poem)
	}
}

func testItem(slug, updated string, typ Type) ContentItem {
	return ContentItem{Slug: slug, Title: strings.ToUpper(slug), Date: updated, Updated: updated, Type: typ}
}

func TestSortByUpdatedNewestFirst(t *testing.T) {
	in := []ContentItem{
		testItem("a", "2025-01-01", TypeBlog),
		testItem("b", "2025-01-03", TypeBlog),
		testItem("c", "2025-01-02", TypeBlog),
		testItem("d", "2025-01-02", TypeBlog),
	}
	got := SortByUpdated(in)
	if !reflect.DeepEqual(slugs(got), []string{"b", "c", "d", "a"}) {
		t.Fatalf("unexpected order %v", slugs(got))
	}
	if in[0].Slug != "a" {
		t.Fatalf("expected input to be untouched")
	}
}

func TestRepositoryListingsAndLookup(t *testing.T) {
	hidden := testItem("hidden", "2025-02-01", TypeBlog)
	hidden.Unlisted = true
	essay := testItem("essay", "2025-01-10", TypeBlog)
	essay.Tags = []string{"essay"}
	repo := NewRepository([]ContentItem{
		testItem("old", "2024-12-01", TypeBlog),
		hidden,
		essay,
		testItem("note", "2025-01-20", TypeMoment),
		testItem("verse", "2025-01-05", TypePoem),
	}, DefaultBasePath)

	if got := slugs(repo.Blog()); !reflect.DeepEqual(got, []string{"essay", "old"}) {
		t.Fatalf("unexpected blog listing %v", got)
	}
	if got := slugs(repo.Feed()); !reflect.DeepEqual(got, []string{"note", "essay", "old"}) {
		t.Fatalf("unexpected feed %v", got)
	}
	if got := slugs(repo.All(TypeBlog)); !reflect.DeepEqual(got, []string{"hidden", "essay", "old"}) {
		t.Fatalf("unexpected full listing %v", got)
	}
	if got := slugs(repo.Tagged(TypeBlog, "Essay")); !reflect.DeepEqual(got, []string{"essay"}) {
		t.Fatalf("unexpected tagged listing %v", got)
	}
	if got := repo.Tagged(TypePoem, "none"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil listing, got %#v", got)
	}
	if _, ok := repo.BySlug("hidden", TypeBlog); !ok {
		t.Fatalf("expected unlisted item to be found by slug")
	}
	if _, ok := repo.BySlug("hidden", TypeMoment); ok {
		t.Fatalf("expected lookup to be scoped by type")
	}
	if repo.Len() != 5 || repo.Count(TypeBlog) != 3 {
		t.Fatalf("unexpected counts %d %d", repo.Len(), repo.Count(TypeBlog))
	}

	listing := repo.Blog()
	listing[0].Title = "changed"
	if again := repo.Blog(); again[0].Title == "changed" {
		t.Fatalf("expected listings to be copies")
	}
}

func TestRepositoryDuplicateSlugFirstWins(t *testing.T) {
	first := testItem("dup", "2025-01-01", TypeBlog)
	first.Title = "first"
	second := testItem("dup", "2025-01-02", TypeBlog)
	second.Title = "second"
	repo := NewRepository([]ContentItem{first, second}, DefaultBasePath)
	got, ok := repo.BySlug("dup", TypeBlog)
	if !ok || got.Title != "first" {
		t.Fatalf("expected first loaded item, got %+v", got)
	}
}

func TestRepositoryBacklinks(t *testing.T) {
	a := testItem("a", "2025-01-01", TypeBlog)
	a.Source = "See [[b]] and again [[b|B]]."
	b := testItem("b", "2025-01-02", TypeBlog)
	c := testItem("c", "2025-01-03", TypeBlog)
	c.Source = "Read [text](/blog/b) and [gone](/at-an-arbor/blog/missing#top)."
	repo := NewRepository([]ContentItem{a, b, c}, DefaultBasePath)

	got := repo.Backlinks("b")
	want := []Backlink{
		{Slug: "c", Title: "C", Updated: "2025-01-03"},
		{Slug: "a", Title: "A", Updated: "2025-01-01"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected backlinks %+v", got)
	}
	if none := repo.Backlinks("a"); none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil backlinks, got %#v", none)
	}
	if dangling := repo.DanglingLinks(); !reflect.DeepEqual(dangling, []string{"missing"}) {
		t.Fatalf("unexpected dangling links %v", dangling)
	}
}

func TestLinkExtractor(t *testing.T) {
	e := NewLinkExtractor(DefaultBasePath)
	links := e.Extract("[x](/at-an-arbor/blog/one) [[two]] [y](/blog/one) [z](/blog/my%20post) ![[img.png]] [w](https://other.site/blog/no)")
	want := []Link{
		{Target: "two", Kind: LinkKindWiki},
		{Target: "one", Kind: LinkKindMarkdown},
		{Target: "my post", Kind: LinkKindMarkdown},
	}
	if !reflect.DeepEqual(links, want) {
		t.Fatalf("unexpected links %+v", links)
	}
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"blog/b.md":         {Data: []byte("---\ntitle: B\ndate: 2025-01-02\n---\nbody b")},
		"blog/a.md":         {Data: []byte("---\ntitle: A\ndate: 2025-01-01\n---\nlinks [[b]]")},
		"blog/.draft.md":    {Data: []byte("hidden")},
		"blog/notes.txt":    {Data: []byte("ignored")},
		"poem/p.md":         {Data: []byte("line one\nline two")},
		"moments/m.md":      {Data: []byte("---\ndate: 2025-01-03\n---\nmoment")},
		"moments/sub/x.md":  {Data: []byte("nested")},
		"unrelated/file.md": {Data: []byte("ignored")},
	}
	items, err := Load(context.Background(), fsys, newTestAssembler(), 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := slugs(items); !reflect.DeepEqual(got, []string{"a", "b", "p", "m"}) {
		t.Fatalf("unexpected load order %v", got)
	}
	if items[3].Type != TypeMoment || items[2].Type != TypePoem {
		t.Fatalf("unexpected types %s %s", items[2].Type, items[3].Type)
	}
	repo := NewRepository(items, DefaultBasePath)
	if got := repo.Backlinks("b"); len(got) != 1 || got[0].Slug != "a" {
		t.Fatalf("unexpected backlinks %+v", got)
	}
}

func TestLoadMissingDirectories(t *testing.T) {
	items, err := Load(context.Background(), fstest.MapFS{}, newTestAssembler(), 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
