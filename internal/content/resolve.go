package content

import (
	"html"
	"strings"
)

const DefaultBasePath = "at-an-arbor"

// Resolver rewrites Obsidian tokens into plain markdown and video embeds
// under the site's base path.
type Resolver struct {
	base string
}

func NewResolver(basePath string) *Resolver {
	return &Resolver{base: strings.Trim(strings.TrimSpace(basePath), "/")}
}

func (r *Resolver) BasePath() string {
	return r.base
}

func (r *Resolver) prefix() string {
	if r.base == "" {
		return ""
	}
	return "/" + r.base
}

// AssetPath is /{base}/images/{folder}/{encoded name}.
func (r *Resolver) AssetPath(typ Type, name string) string {
	return r.prefix() + "/images/" + typ.Folder() + "/" + encodeURIComponent(name)
}

// PostPath is /{base}/blog/{slug}.
func (r *Resolver) PostPath(slug string) string {
	return r.prefix() + "/blog/" + slug
}

// Resolve replaces every embed token and, for blog bodies, every page link.
// Tokens with an empty name produce no output. Text without tokens is
// returned unchanged, which makes Resolve idempotent.
func (r *Resolver) Resolve(body string, typ Type) string {
	tokens := Tokenize(body)
	if len(tokens) == 1 && tokens[0].Kind == TextToken {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for _, tok := range tokens {
		switch tok.Kind {
		case TextToken:
			b.WriteString(tok.Raw)
		case ImageToken:
			if tok.Target == "" {
				continue
			}
			b.WriteString("![")
			b.WriteString(escapeLinkText(tok.Label))
			b.WriteString("](")
			b.WriteString(r.AssetPath(typ, tok.Target))
			b.WriteString(")")
		case VideoToken:
			if tok.Target == "" {
				continue
			}
			b.WriteString(r.videoEmbed(typ, tok))
		case LinkToken:
			if typ != TypeBlog {
				b.WriteString(tok.Raw)
				continue
			}
			if tok.Target == "" {
				continue
			}
			b.WriteString("[")
			b.WriteString(escapeLinkText(tok.Label))
			b.WriteString("](")
			b.WriteString(linkDestination(r.PostPath(tok.Target)))
			b.WriteString(")")
		}
	}
	return b.String()
}

func (r *Resolver) videoEmbed(typ Type, tok Token) string {
	label := tok.Label
	if label == "" {
		label = tok.Target
	}
	return `<video src="` + html.EscapeString(r.AssetPath(typ, tok.Target)) +
		`" controls playsinline preload="metadata" aria-label="` + html.EscapeString(label) + `"></video>`
}

func escapeLinkText(s string) string {
	return strings.NewReplacer(`[`, `\[`, `]`, `\]`).Replace(s)
}

func linkDestination(dest string) string {
	if strings.ContainsAny(dest, " \t()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(dest) + ">"
	}
	return dest
}

// encodeURIComponent matches the JavaScript function of the same name,
// except that parentheses are escaped too so the result is always a valid
// markdown link destination.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'':
		return true
	}
	return false
}
