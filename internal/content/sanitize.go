package content

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	targetBlankRe = regexp.MustCompile(`^_blank$`)
	relRe         = regexp.MustCompile(`^[a-z ]+$`)
	preloadRe     = regexp.MustCompile(`^(none|metadata|auto)$`)
	checkboxRe    = regexp.MustCompile(`^checkbox$`)
)

var proseElements = []string{
	"abbr", "b", "blockquote", "br", "caption", "cite", "code", "col", "colgroup",
	"dd", "del", "details", "div", "dl", "dt", "em", "figcaption", "figure",
	"h1", "h2", "h3", "h4", "h5", "h6", "hr", "i", "ins", "kbd", "li", "mark",
	"ol", "p", "pre", "q", "s", "samp", "small", "span", "strong", "sub",
	"summary", "sup", "table", "tbody", "td", "tfoot", "th", "thead", "tr",
	"u", "ul", "wbr",
}

// ContentPolicy is the allow-list for rendered bodies: prose, links, lazy
// images and video embeds. Everything else is dropped.
func ContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	allowSiteURLs(p)
	p.AllowStandardAttributes()
	p.AllowElements(proseElements...)
	p.AllowImages()
	p.AllowLists()
	p.AllowTables()

	p.AllowAttrs("class").Globally()
	p.AllowAttrs("cite").OnElements("blockquote", "q")
	p.AllowAttrs("open").OnElements("details")

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(targetBlankRe).OnElements("a")
	p.AllowAttrs("rel").Matching(relRe).OnElements("a")

	p.AllowAttrs("loading", "decoding").OnElements("img")

	p.AllowAttrs("src").OnElements("video")
	p.AllowAttrs("controls", "playsinline").OnElements("video")
	p.AllowAttrs("preload").Matching(preloadRe).OnElements("video")
	p.AllowAttrs("aria-label").OnElements("video")

	p.AllowAttrs("type").Matching(checkboxRe).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}

// ExcerptPolicy keeps inline markup and links only.
func ExcerptPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	allowSiteURLs(p)
	p.AllowElements("b", "br", "code", "del", "em", "i", "s", "span", "strong")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").OnElements("a", "span")
	p.AllowAttrs("target").Matching(targetBlankRe).OnElements("a")
	p.AllowAttrs("rel").Matching(relRe).OnElements("a")
	return p
}

// allowSiteURLs is AllowStandardURLs without the forced rel="nofollow";
// link rel values come from the renderer.
func allowSiteURLs(p *bluemonday.Policy) {
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("mailto", "http", "https")
}
