package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	ExcerptLimit     = 100
	ExcerptEllipsis  = "..."
	PoemContinuation = "："
)

var (
	paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n`)
	embedTokenRe     = regexp.MustCompile(`!\[\[[^\n]*?\]\]`)
	videoEmbedRe     = regexp.MustCompile(`<video\b[^>]*>(?:</video>)?`)
)

// Excerpt builds the listing preview for a resolved body. A panic while
// rendering is returned as an error.
func (r *Renderer) Excerpt(body string, typ Type) (out string, err error) {
	defer func() {
		if v := recover(); v != nil {
			out = ""
			err = fmt.Errorf("excerpt %s: panic: %v", typ, v)
		}
	}()
	switch typ {
	case TypePoem:
		return PoemExcerpt(body), nil
	case TypeMoment:
		return r.MomentExcerpt(body)
	default:
		return BlogExcerpt(body), nil
	}
}

// PoemExcerpt is the first two non-blank lines, plus a full-width colon when
// the poem goes on.
func PoemExcerpt(body string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 2 {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:2], "\n") + PoemContinuation
}

// BlogExcerpt is the first paragraph as plain text, cut to ExcerptLimit
// characters.
func BlogExcerpt(body string) string {
	text := StripImages(FirstParagraph(body))
	if utf8.RuneCountInString(text) <= ExcerptLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:ExcerptLimit]) + ExcerptEllipsis
}

// MomentExcerpt renders the first paragraph inline so links and emphasis
// survive.
func (r *Renderer) MomentExcerpt(body string) (string, error) {
	text := StripImages(FirstParagraph(body))
	if text == "" {
		return "", nil
	}
	rendered, err := r.RenderInline(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.SanitizeExcerpt(rendered)), nil
}

func FirstParagraph(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return paragraphBreakRe.Split(body, 2)[0]
}

// StripImages removes embed tokens, markdown images and video embeds.
func StripImages(s string) string {
	s = embedTokenRe.ReplaceAllString(s, "")
	s = mdImageRe.ReplaceAllString(s, "")
	s = videoEmbedRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
