package content

import (
	"errors"
	"sort"
)

var ErrNotFound = errors.New("content not found")

// Repository is the immutable result of one build pass. Every accessor
// returns a fresh slice, so callers cannot reach the stored records.
type Repository struct {
	all       map[Type][]ContentItem
	sorted    map[Type][]ContentItem
	public    map[Type][]ContentItem
	feed      []ContentItem
	bySlug    map[Type]map[string]int
	backlinks Backlinks
	basePath  string
}

// NewRepository indexes items, which should be in load order. Backlinks are
// read from every blog item, unlisted ones included.
func NewRepository(items []ContentItem, basePath string) *Repository {
	r := &Repository{
		all:      make(map[Type][]ContentItem, len(Types)),
		sorted:   make(map[Type][]ContentItem, len(Types)),
		public:   make(map[Type][]ContentItem, len(Types)),
		bySlug:   make(map[Type]map[string]int, len(Types)),
		basePath: basePath,
	}
	for _, item := range items {
		idx, ok := r.bySlug[item.Type]
		if !ok {
			idx = make(map[string]int)
			r.bySlug[item.Type] = idx
		}
		if _, dup := idx[item.Slug]; !dup {
			idx[item.Slug] = len(r.all[item.Type])
		}
		r.all[item.Type] = append(r.all[item.Type], item)
	}
	for _, t := range Types {
		r.sorted[t] = SortByUpdated(r.all[t])
		r.public[t] = Listed(r.sorted[t])
	}
	combined := make([]ContentItem, 0, len(r.all[TypeBlog])+len(r.all[TypeMoment]))
	combined = append(combined, r.all[TypeBlog]...)
	combined = append(combined, r.all[TypeMoment]...)
	r.feed = Listed(SortByUpdated(combined))
	r.backlinks = BuildBacklinks(r.sorted[TypeBlog], NewLinkExtractor(basePath))
	return r
}

func (r *Repository) BasePath() string {
	return r.basePath
}

func (r *Repository) Blog() []ContentItem    { return r.ByType(TypeBlog) }
func (r *Repository) Poems() []ContentItem   { return r.ByType(TypePoem) }
func (r *Repository) Moments() []ContentItem { return r.ByType(TypeMoment) }

// Feed is blog and moment items merged, newest first, unlisted removed.
func (r *Repository) Feed() []ContentItem {
	return clone(r.feed)
}

// ByType is the public listing for t.
func (r *Repository) ByType(t Type) []ContentItem {
	return clone(r.public[t])
}

// All includes unlisted items, newest first.
func (r *Repository) All(t Type) []ContentItem {
	return clone(r.sorted[t])
}

// Tagged filters the public listing for t by tag.
func (r *Repository) Tagged(t Type, tag string) []ContentItem {
	out := []ContentItem{}
	for _, item := range r.public[t] {
		if item.HasTag(tag) {
			out = append(out, item)
		}
	}
	return out
}

// BySlug ignores the unlisted flag. With duplicate slugs the first loaded
// file wins.
func (r *Repository) BySlug(slug string, t Type) (ContentItem, bool) {
	i, ok := r.bySlug[t][slug]
	if !ok {
		return ContentItem{}, false
	}
	return r.all[t][i], true
}

func (r *Repository) Backlinks(slug string) []Backlink {
	return r.backlinks.For(slug)
}

func (r *Repository) BacklinkGraph() Backlinks {
	out := make(Backlinks, len(r.backlinks))
	for target, list := range r.backlinks {
		out[target] = append([]Backlink(nil), list...)
	}
	return out
}

// DanglingLinks lists link targets with no matching blog post.
func (r *Repository) DanglingLinks() []string {
	return DanglingTargets(r.backlinks, r.all[TypeBlog])
}

func (r *Repository) Count(t Type) int {
	return len(r.all[t])
}

func (r *Repository) Len() int {
	n := 0
	for _, items := range r.all {
		n += len(items)
	}
	return n
}

// SortByUpdated returns a copy sorted by Updated, newest first. Equal dates
// keep their input order.
func SortByUpdated(items []ContentItem) []ContentItem {
	out := clone(items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Updated > out[j].Updated
	})
	return out
}

func Listed(items []ContentItem) []ContentItem {
	out := make([]ContentItem, 0, len(items))
	for _, item := range items {
		if !item.Unlisted {
			out = append(out, item)
		}
	}
	return out
}

func clone(items []ContentItem) []ContentItem {
	if len(items) == 0 {
		return []ContentItem{}
	}
	return append([]ContentItem(nil), items...)
}
