package content

import (
	"bytes"
	"strings"
	"testing"
)

func newTestRenderer() *Renderer {
	return NewRenderer(RendererOptions{
		BasePath:   DefaultBasePath,
		SiteDomain: "0xsalome.github.io",
	})
}

func TestRenderBlogMarkdown(t *testing.T) {
	r := newTestRenderer()
	out, err := r.Render("Hello **world**\nsecond line\n\n- one\n- two", TypeBlog)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<strong>world</strong>", "<br", "<ul>", "<li>one</li>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestRenderStripsScripts(t *testing.T) {
	r := newTestRenderer()
	body := "<script>alert(1)</script>\n\nsee <img src=\"/a.png\" onerror=\"steal()\"> and <a href=\"javascript:alert(1)\">x</a>"
	out, err := r.Render(body, TypeBlog)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, banned := range []string{"<script", "alert(1)", "onerror", "steal()", "javascript:"} {
		if strings.Contains(out, banned) {
			t.Fatalf("expected %q to be removed: %s", banned, out)
		}
	}
}

func TestRenderLinkAttributes(t *testing.T) {
	r := newTestRenderer()
	out, err := r.Render("[ext](https://example.com) [home](https://0xsalome.github.io/at-an-arbor/) [post](/at-an-arbor/blog/other)", TypeBlog)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `target="_blank"`) || !strings.Contains(out, `rel="noopener noreferrer"`) {
		t.Fatalf("expected external link attributes: %s", out)
	}
	if strings.Count(out, `target="_blank"`) != 1 {
		t.Fatalf("expected only the external link to open a new tab: %s", out)
	}
	if !strings.Contains(out, `<a href="/at-an-arbor/blog/other" class="wikilink">post</a>`) {
		t.Fatalf("expected internal post link with class and no rel: %s", out)
	}
	if strings.Contains(out, "nofollow") {
		t.Fatalf("expected no nofollow on links: %s", out)
	}
}

func TestRenderLazyImages(t *testing.T) {
	r := newTestRenderer()
	resolved := NewResolver(DefaultBasePath).Resolve("![[photo.png|A cat]]", TypeBlog)
	out, err := r.Render(resolved, TypeBlog)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`src="/at-an-arbor/images/blog/photo.png"`,
		`alt="A cat"`,
		`loading="lazy"`,
		`decoding="async"`,
		`class="lazy-load"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestRenderKeepsVideoEmbed(t *testing.T) {
	r := newTestRenderer()
	resolved := NewResolver(DefaultBasePath).Resolve("![[clip.mp4]]", TypeMoment)
	out, err := r.Render(resolved, TypeMoment)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<video", `src="/at-an-arbor/images/moments/clip.mp4"`, "controls", "playsinline", `preload="metadata"`, `aria-label="clip.mp4"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestRenderVerse(t *testing.T) {
	r := newTestRenderer()
	out, err := r.Render("\nline *one*\nline two\n\n# not a heading\n\n", TypePoem)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<p>") || strings.Contains(out, "<h1") {
		t.Fatalf("expected verse without block markup: %s", out)
	}
	if !strings.Contains(out, "<em>one</em>") {
		t.Fatalf("expected inline emphasis: %s", out)
	}
	if !strings.Contains(out, "# not a heading") {
		t.Fatalf("expected heading marker kept as text: %s", out)
	}
	if got := strings.Count(out, "\n"); got != 3 {
		t.Fatalf("expected 4 verse lines, got %d newlines: %q", got, out)
	}
}

func TestRenderVerseKeepsIndentation(t *testing.T) {
	r := newTestRenderer()
	out, err := r.Render("top\n    four spaces\n\ttab indented\n  two\nbottom", TypePoem)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "top<br>\n" +
		"\u00a0\u00a0\u00a0\u00a0four spaces<br>\n" +
		"\u00a0\u00a0\u00a0\u00a0tab indented<br>\n" +
		"\u00a0\u00a0two<br>\n" +
		"bottom"
	if out != want {
		t.Fatalf("unexpected verse:\n%q\nwant:\n%q", out, want)
	}
}

func TestRenderRecoversFromPanic(t *testing.T) {
	r := &Renderer{}
	if out, err := r.Render("body", TypeBlog); err == nil || out != "" {
		t.Fatalf("expected recovered render error, got %q (%v)", out, err)
	}
	if out, err := r.Excerpt("body", TypeMoment); err == nil || out != "" {
		t.Fatalf("expected recovered excerpt error, got %q (%v)", out, err)
	}

	item := NewAssembler(NewResolver(DefaultBasePath), r).Assemble("m.md", "---\ndate: 2025-01-01\n---\nhello", TypeMoment)
	if item.Slug != "m" || item.Content != "" || item.Excerpt != "" || item.RawContent != "hello" {
		t.Fatalf("expected item with empty html after a panic, got %+v", item)
	}
}

func TestRenderInline(t *testing.T) {
	r := newTestRenderer()
	out, err := r.RenderInline("a *b* [c](https://example.com)")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "a <em>b</em> <a href=\"https://example.com\"") {
		t.Fatalf("unexpected inline output: %s", out)
	}
	if strings.Contains(out, "<p>") || strings.HasSuffix(out, "\n") {
		t.Fatalf("expected bare inline output: %q", out)
	}
}

func TestRenderHighlightsCode(t *testing.T) {
	r := newTestRenderer()
	out, err := r.Render("```go\nfunc main() {}\n```", TypeBlog)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `class="chroma"`) {
		t.Fatalf("expected highlighted code block: %s", out)
	}
	var css bytes.Buffer
	if err := r.WriteHighlightCSS(&css); err != nil {
		t.Fatalf("css: %v", err)
	}
	if !strings.Contains(css.String(), ".chroma") {
		t.Fatalf("expected chroma stylesheet, got %q", css.String())
	}
}

func TestIsExternalLink(t *testing.T) {
	cases := map[string]bool{
		"https://example.com":                     true,
		"http://example.com/x":                    true,
		"https://0xsalome.github.io/at-an-arbor/": false,
		"/at-an-arbor/blog/x":                     false,
		"mailto:someone@example.com":              false,
	}
	for href, want := range cases {
		if got := IsExternalLink(href, "0xsalome.github.io"); got != want {
			t.Fatalf("%s: expected %v, got %v", href, want, got)
		}
	}
}
