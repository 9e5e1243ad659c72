package content

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const DefaultCodeStyle = "github"

const nbsp = "\u00a0"

type RendererOptions struct {
	BasePath   string
	SiteDomain string
	CodeStyle  string
}

// Renderer converts resolved markdown to sanitized HTML. It is safe for
// concurrent use.
type Renderer struct {
	block         goldmark.Markdown
	inline        goldmark.Markdown
	policy        *bluemonday.Policy
	excerptPolicy *bluemonday.Policy
	codeStyle     string
}

func NewRenderer(opts RendererOptions) *Renderer {
	style := strings.TrimSpace(opts.CodeStyle)
	if style == "" {
		style = DefaultCodeStyle
	}
	style = styles.Get(style).Name

	attrs := &attributeTransformer{
		siteDomain: strings.TrimSpace(opts.SiteDomain),
		postPrefix: NewResolver(opts.BasePath).PostPath(""),
	}

	block := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(attrs, 100)),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)

	inline := goldmark.New(
		goldmark.WithParser(parser.NewParser(
			parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
			parser.WithInlineParsers(parser.DefaultInlineParsers()...),
			parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
			parser.WithASTTransformers(
				util.Prioritized(attrs, 100),
				util.Prioritized(paragraphUnwrapper{}, 200),
			),
		)),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)

	return &Renderer{
		block:         block,
		inline:        inline,
		policy:        ContentPolicy(),
		excerptPolicy: ExcerptPolicy(),
		codeStyle:     style,
	}
}

// Render picks the mode for typ: verse for poems, block HTML otherwise.
func (r *Renderer) Render(body string, typ Type) (out string, err error) {
	defer func() {
		if v := recover(); v != nil {
			out = ""
			err = fmt.Errorf("render %s: panic: %v", typ, v)
		}
	}()
	var raw string
	if typ == TypePoem {
		raw, err = r.RenderVerse(body)
	} else {
		raw, err = r.RenderBlock(body)
	}
	if err != nil {
		return "", err
	}
	return r.Sanitize(raw), nil
}

// RenderBlock renders full markdown without sanitizing.
func (r *Renderer) RenderBlock(body string) (string, error) {
	return convert(r.block, body)
}

// RenderInline renders inline markup only: no paragraphs, headings or lists.
// The result is not sanitized.
func (r *Renderer) RenderInline(src string) (string, error) {
	out, err := convert(r.inline, src)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// RenderVerse renders every line on its own and joins the lines with <br>,
// so blank lines between stanzas survive as empty lines. Leading
// indentation is kept as non-breaking spaces.
func (r *Renderer) RenderVerse(body string) (string, error) {
	lines := trimBlankLines(strings.Split(body, "\n"))
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rest := strings.TrimLeft(line, " \t")
		rendered, err := r.RenderInline(rest)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = verseIndent(line[:len(line)-len(rest)]) + rendered
	}
	return strings.Join(out, "<br>\n"), nil
}

// verseIndent turns leading blanks into U+00A0, four per tab.
func verseIndent(lead string) string {
	if lead == "" {
		return ""
	}
	var b strings.Builder
	for _, c := range lead {
		if c == '\t' {
			b.WriteString(strings.Repeat(nbsp, 4))
			continue
		}
		b.WriteString(nbsp)
	}
	return b.String()
}

func (r *Renderer) Sanitize(raw string) string {
	return r.policy.Sanitize(raw)
}

func (r *Renderer) SanitizeExcerpt(raw string) string {
	return r.excerptPolicy.Sanitize(raw)
}

func (r *Renderer) CodeStyle() string {
	return r.codeStyle
}

// WriteHighlightCSS writes the stylesheet for the class names emitted on
// highlighted code blocks.
func (r *Renderer) WriteHighlightCSS(w io.Writer) error {
	return chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(w, styles.Get(r.codeStyle))
}

func convert(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

type attributeTransformer struct {
	siteDomain string
	postPrefix string
}

func (t *attributeTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			node.SetAttributeString("loading", []byte("lazy"))
			node.SetAttributeString("decoding", []byte("async"))
			node.SetAttributeString("class", []byte("lazy-load"))
		case *ast.Link:
			t.decorateLink(node, string(node.Destination))
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				t.decorateLink(node, string(node.URL(source)))
			}
		}
		return ast.WalkContinue, nil
	})
}

func (t *attributeTransformer) decorateLink(node ast.Node, dest string) {
	if IsExternalLink(dest, t.siteDomain) {
		node.SetAttributeString("target", []byte("_blank"))
		node.SetAttributeString("rel", []byte("noopener noreferrer"))
		return
	}
	if strings.HasPrefix(dest, t.postPrefix) {
		node.SetAttributeString("class", []byte("wikilink"))
	}
}

// IsExternalLink reports whether href leaves the site deployed at siteDomain.
func IsExternalLink(href, siteDomain string) bool {
	if !strings.HasPrefix(href, "http") {
		return false
	}
	return siteDomain == "" || !strings.Contains(href, siteDomain)
}

// paragraphUnwrapper turns top-level paragraphs into text blocks, which the
// HTML renderer writes without a <p> wrapper.
type paragraphUnwrapper struct{}

func (paragraphUnwrapper) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	var paragraphs []*ast.Paragraph
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if p, ok := c.(*ast.Paragraph); ok {
			paragraphs = append(paragraphs, p)
		}
	}
	for _, p := range paragraphs {
		tb := ast.NewTextBlock()
		tb.SetLines(p.Lines())
		for c := p.FirstChild(); c != nil; {
			next := c.NextSibling()
			tb.AppendChild(tb, c)
			c = next
		}
		doc.ReplaceChild(doc, p, tb)
	}
}
