package content

import (
	"regexp"
	"strings"
)

type ValueKind int

const (
	ScalarValue ValueKind = iota
	ListValue
)

// Value is a single frontmatter value. Scalar is set for ScalarValue, List
// for ListValue.
type Value struct {
	Kind   ValueKind
	Scalar string
	List   []string
}

// Frontmatter holds parsed metadata. Keys keep their original spelling and
// order of first appearance; lookups are case-insensitive.
type Frontmatter struct {
	keys   []string
	values map[string]Value
}

var frontmatterKeyRe = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_-]*)\s*:(.*)$`)

// ParseFrontmatter splits raw into its metadata block and body. Text without
// a leading "---" line (or without a closing one) is all body.
func ParseFrontmatter(raw string) (Frontmatter, string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return Frontmatter{}, raw
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return Frontmatter{}, raw
	}
	return parseFrontmatterLines(lines[1:end]), strings.Join(lines[end+1:], "\n")
}

func parseFrontmatterLines(lines []string) Frontmatter {
	var fm Frontmatter
	listKey := ""
	var listItems []string
	inList := false

	commit := func() {
		if !inList {
			return
		}
		if len(listItems) == 0 {
			fm.set(listKey, Value{Kind: ScalarValue})
		} else {
			fm.set(listKey, Value{Kind: ListValue, List: listItems})
		}
		inList = false
		listKey = ""
		listItems = nil
	}

	for _, line := range lines {
		if inList {
			if item, ok := parseBlockListItem(line); ok {
				if item != "" {
					listItems = append(listItems, item)
				}
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			commit()
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		m := frontmatterKeyRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		key := m[1]
		val := strings.TrimSpace(m[2])
		switch {
		case val == "":
			inList = true
			listKey = key
		case strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]"):
			fm.set(key, Value{Kind: ListValue, List: parseInlineList(val)})
		default:
			fm.set(key, Value{Kind: ScalarValue, Scalar: unquote(val)})
		}
	}
	commit()
	return fm
}

func parseBlockListItem(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "-" {
		return "", true
	}
	if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "-\t") {
		return "", false
	}
	return unquote(strings.TrimSpace(trimmed[1:])), true
}

func parseInlineList(val string) []string {
	val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(val string) string {
	val = strings.TrimSpace(val)
	if len(val) >= 2 {
		first, last := val[0], val[len(val)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(val[1 : len(val)-1])
		}
	}
	return val
}

func (fm *Frontmatter) set(key string, v Value) {
	if fm.values == nil {
		fm.values = make(map[string]Value)
	}
	lower := strings.ToLower(key)
	if _, exists := fm.values[lower]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[lower] = v
}

func (fm Frontmatter) Get(key string) (Value, bool) {
	v, ok := fm.values[strings.ToLower(key)]
	return v, ok
}

func (fm Frontmatter) Len() int {
	return len(fm.keys)
}

func (fm Frontmatter) Keys() []string {
	return append([]string(nil), fm.keys...)
}

// String returns the scalar value for key. Lists are joined with ", ".
func (fm Frontmatter) String(key string) string {
	v, ok := fm.Get(key)
	if !ok {
		return ""
	}
	if v.Kind == ListValue {
		return strings.Join(v.List, ", ")
	}
	return v.Scalar
}

// List returns the list value for key. A non-empty scalar is a one-item list.
func (fm Frontmatter) List(key string) []string {
	v, ok := fm.Get(key)
	if !ok {
		return nil
	}
	if v.Kind == ListValue {
		return append([]string(nil), v.List...)
	}
	if v.Scalar == "" {
		return nil
	}
	return []string{v.Scalar}
}

// Bool is true only for a scalar "true" (any case).
func (fm Frontmatter) Bool(key string) bool {
	v, ok := fm.Get(key)
	if !ok || v.Kind != ScalarValue {
		return false
	}
	return strings.EqualFold(v.Scalar, "true")
}

// Map flattens the frontmatter for export: scalars become strings and lists
// become []string.
func (fm Frontmatter) Map() map[string]any {
	out := make(map[string]any, len(fm.keys))
	for _, key := range fm.keys {
		v := fm.values[strings.ToLower(key)]
		if v.Kind == ListValue {
			out[key] = append([]string(nil), v.List...)
			continue
		}
		out[key] = v.Scalar
	}
	return out
}
