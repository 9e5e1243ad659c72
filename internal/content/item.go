package content

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
)

type Type string

const (
	TypeBlog   Type = "blog"
	TypePoem   Type = "poem"
	TypeMoment Type = "moment"
)

var Types = []Type{TypeBlog, TypePoem, TypeMoment}

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeBlog, TypePoem, TypeMoment:
		return t, nil
	case "moments":
		return TypeMoment, nil
	case "poems":
		return TypePoem, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Folder names both the source directory and the image directory for t.
func (t Type) Folder() string {
	if t == TypeMoment {
		return "moments"
	}
	return string(t)
}

// ContentItem is one parsed source file. It is never modified after
// Assemble returns it.
type ContentItem struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Updated    string   `json:"updated"`
	Type       Type     `json:"type"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	RawContent string   `json:"rawContent"`
	Images     []string `json:"images,omitempty"`
	Unlisted   bool     `json:"unlisted,omitempty"`
	NoIndex    bool     `json:"noindex,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	LatestLog  string   `json:"latestLog,omitempty"`

	// Source is the body before link resolution; backlinks are read from it.
	Source string      `json:"-"`
	Meta   Frontmatter `json:"-"`
}

func (c ContentItem) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func SlugFromFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.EqualFold(path.Ext(base), ".md") {
		base = base[:len(base)-len(".md")]
	}
	return base
}

var mdImageRe = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

// Assembler turns raw source files into ContentItems.
type Assembler struct {
	resolver *Resolver
	renderer *Renderer
	logger   *slog.Logger
}

func NewAssembler(resolver *Resolver, renderer *Renderer) *Assembler {
	return &Assembler{resolver: resolver, renderer: renderer, logger: slog.Default()}
}

func (a *Assembler) WithLogger(logger *slog.Logger) *Assembler {
	next := *a
	next.logger = logger
	return &next
}

func (a *Assembler) Resolver() *Resolver {
	return a.resolver
}

// Assemble never fails: a render failure leaves Content (or Excerpt) empty
// and is logged.
func (a *Assembler) Assemble(fileName, raw string, typ Type) ContentItem {
	fm, body := ParseFrontmatter(raw)
	slug := SlugFromFileName(fileName)
	resolved := a.resolver.Resolve(body, typ)

	date := fm.String("date")
	updated := fm.String("updated")
	if updated == "" {
		updated = date
	}
	title := fm.String("title")
	if title == "" {
		title = slug
	}
	tags := fm.List("tags")
	if len(tags) == 0 && typ == TypeBlog {
		tags = []string{"blog"}
	}

	item := ContentItem{
		Slug:       slug,
		Title:      title,
		Date:       date,
		Updated:    updated,
		Type:       typ,
		RawContent: resolved,
		Images:     extractImages(resolved),
		Unlisted:   fm.Bool("unlisted"),
		NoIndex:    fm.Bool("noindex"),
		Tags:       tags,
		LatestLog:  fm.String("latestLog"),
		Source:     body,
		Meta:       fm,
	}

	excerpt, err := a.renderer.Excerpt(resolved, typ)
	if err != nil {
		a.logger.Warn("excerpt render failed", "type", typ, "slug", slug, "err", err)
	}
	item.Excerpt = excerpt

	html, err := a.renderer.Render(resolved, typ)
	if err != nil {
		a.logger.Error("content render failed", "type", typ, "slug", slug, "err", err)
	}
	item.Content = html
	return item
}

func extractImages(body string) []string {
	matches := mdImageRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
