package content

import (
	"path"
	"regexp"
	"strings"
)

type TokenKind int

const (
	TextToken TokenKind = iota
	ImageToken
	VideoToken
	LinkToken
)

func (k TokenKind) String() string {
	switch k {
	case ImageToken:
		return "image"
	case VideoToken:
		return "video"
	case LinkToken:
		return "link"
	default:
		return "text"
	}
}

// Token is one element of a tokenized body. Raw is always the exact source
// text, so joining every Raw reproduces the input.
type Token struct {
	Kind   TokenKind
	Raw    string
	Target string
	Label  string
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".mov":  {},
	".m4v":  {},
	".ogv":  {},
}

// Obsidian's "![[photo.png|300]]" and "|300x200" are size hints, not alt text.
var embedSizeRe = regexp.MustCompile(`^\d+(x\d+)?$`)

func IsVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// Tokenize splits body into text and Obsidian tokens in a single left to
// right pass. "![[" always wins over "[[", so a "[[" preceded by "!" is
// never a page link.
func Tokenize(body string) []Token {
	var tokens []Token
	text := 0
	pos := 0
	flush := func(end int) {
		if end > text {
			tokens = append(tokens, Token{Kind: TextToken, Raw: body[text:end]})
		}
	}
	for {
		rel := strings.Index(body[pos:], "[[")
		if rel < 0 {
			break
		}
		open := pos + rel
		embed := open > 0 && body[open-1] == '!'
		start := open
		if embed {
			start = open - 1
		}
		closeRel := strings.Index(body[open+2:], "]]")
		if closeRel < 0 {
			break
		}
		inner := body[open+2 : open+2+closeRel]
		end := open + 2 + closeRel + 2
		if strings.ContainsAny(inner, "\n[]") {
			pos = open + 1
			continue
		}
		tok, ok := classify(inner, embed)
		if !ok {
			pos = end
			continue
		}
		flush(start)
		tok.Raw = body[start:end]
		tokens = append(tokens, tok)
		text = end
		pos = end
	}
	flush(len(body))
	return tokens
}

func classify(inner string, embed bool) (Token, bool) {
	name, label, hasLabel := strings.Cut(inner, "|")
	name = strings.TrimSpace(name)
	label = strings.TrimSpace(label)
	if embed {
		if embedSizeRe.MatchString(label) {
			label = ""
		}
		kind := ImageToken
		if IsVideo(name) {
			kind = VideoToken
		}
		return Token{Kind: kind, Target: name, Label: label}, true
	}
	if inner == "" || (hasLabel && label == "") {
		return Token{}, false
	}
	if label == "" {
		label = name
	}
	return Token{Kind: LinkToken, Target: name, Label: label}, true
}
