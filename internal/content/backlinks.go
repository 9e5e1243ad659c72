package content

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const (
	LinkKindWiki     = "wikilink"
	LinkKindMarkdown = "mdlink"
)

type Backlink struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Updated string `json:"updated"`
}

// Link is one outgoing reference to a blog slug.
type Link struct {
	Target string
	Kind   string
}

// Backlinks maps a target slug to the posts that link to it, newest first.
type Backlinks map[string][]Backlink

// For never returns nil.
func (b Backlinks) For(slug string) []Backlink {
	links := b[slug]
	if len(links) == 0 {
		return []Backlink{}
	}
	return append([]Backlink(nil), links...)
}

func (b Backlinks) Targets() []string {
	out := make([]string, 0, len(b))
	for target := range b {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// LinkExtractor finds blog references in a markdown body: wiki-links and
// markdown links to /blog/{slug} or /{base}/blog/{slug}.
type LinkExtractor struct {
	mdLinkRe *regexp.Regexp
}

func NewLinkExtractor(basePath string) *LinkExtractor {
	prefix := ""
	if base := strings.Trim(strings.TrimSpace(basePath), "/"); base != "" {
		prefix = `(?:/` + regexp.QuoteMeta(base) + `)?`
	}
	return &LinkExtractor{
		mdLinkRe: regexp.MustCompile(`\[[^\]]+\]\(` + prefix + `/blog/([^)#\s]+)`),
	}
}

// Extract returns each target once, wiki-links first, in order of appearance.
func (e *LinkExtractor) Extract(body string) []Link {
	seen := make(map[string]struct{})
	var out []Link
	add := func(target, kind string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		out = append(out, Link{Target: target, Kind: kind})
	}
	for _, tok := range Tokenize(body) {
		if tok.Kind == LinkToken {
			add(tok.Target, LinkKindWiki)
		}
	}
	for _, m := range e.mdLinkRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		if decoded, err := url.PathUnescape(target); err == nil {
			target = decoded
		}
		add(target, LinkKindMarkdown)
	}
	return out
}

// BuildBacklinks scans every source body. A source is recorded once per
// target however often it links there, and targets are not checked for
// existence.
func BuildBacklinks(sources []ContentItem, extractor *LinkExtractor) Backlinks {
	graph := make(Backlinks)
	for _, src := range sources {
		for _, link := range extractor.Extract(src.Source) {
			list := graph[link.Target]
			if containsBacklink(list, src.Slug) {
				continue
			}
			graph[link.Target] = append(list, Backlink{
				Slug:    src.Slug,
				Title:   src.Title,
				Updated: src.Updated,
			})
		}
	}
	for _, list := range graph {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Updated > list[j].Updated
		})
	}
	return graph
}

func containsBacklink(list []Backlink, slug string) bool {
	for _, bl := range list {
		if bl.Slug == slug {
			return true
		}
	}
	return false
}

// DanglingTargets lists link targets that match no item, sorted.
func DanglingTargets(graph Backlinks, items []ContentItem) []string {
	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.Slug] = struct{}{}
	}
	var out []string
	for _, target := range graph.Targets() {
		if _, ok := known[target]; !ok {
			out = append(out, target)
		}
	}
	return out
}
