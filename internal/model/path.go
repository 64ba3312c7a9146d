package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedPathSegment is returned when a write would have to descend
// into a list or through a non-mapping value. Writes through list segments
// have no defined semantics.
var ErrUnsupportedPathSegment = eris.New("path: unsupported segment")

// FieldPath addresses one leaf or subsection of a record. Index segments are
// stored as "[i]".
type FieldPath []string

// ParsePath splits a dotted path such as "metrics.landAreaSqm" or
// "[2].builtYear". Empty segments are dropped.
func ParsePath(s string) FieldPath {
	var p FieldPath
	for _, part := range strings.Split(s, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// "entries[3]" style: split the key from its index suffix.
		if i := strings.IndexByte(part, '['); i > 0 && strings.HasSuffix(part, "]") {
			p = append(p, part[:i], part[i:])
			continue
		}
		p = append(p, part)
	}
	return p
}

// Index builds an index segment.
func Index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// Child returns a new path with seg appended; p is not modified.
func (p FieldPath) Child(seg ...string) FieldPath {
	out := make(FieldPath, 0, len(p)+len(seg))
	out = append(out, p...)
	return append(out, seg...)
}

func (p FieldPath) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 && !isIndexSegment(seg) {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Get resolves p against record. The second result is false when any segment
// is missing or cannot be traversed.
func (p FieldPath) Get(record any) (any, bool) {
	cur := record
	for _, seg := range p {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := parseIndex(seg)
			if !ok || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at p inside root, creating intermediate mappings where
// they are absent or null. root must be a mapping. Lists are never entered.
func (p FieldPath) Set(root any, value any) error {
	if len(p) == 0 {
		return eris.Wrap(ErrUnsupportedPathSegment, "path: empty")
	}
	node, ok := root.(map[string]any)
	if !ok {
		return eris.Wrapf(ErrUnsupportedPathSegment, "path %s: root is not a mapping", p)
	}
	for i, seg := range p[:len(p)-1] {
		if isIndexSegment(seg) {
			return eris.Wrapf(ErrUnsupportedPathSegment, "path %s: index segment %s", p, seg)
		}
		next, exists := node[seg]
		if !exists || next == nil {
			created := make(map[string]any)
			node[seg] = created
			node = created
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return eris.Wrapf(ErrUnsupportedPathSegment, "path %s: %s is not a mapping", p, FieldPath(p[:i+1]))
		}
		node = m
	}
	last := p[len(p)-1]
	if isIndexSegment(last) {
		return eris.Wrapf(ErrUnsupportedPathSegment, "path %s: index segment %s", p, last)
	}
	node[last] = value
	return nil
}

func isIndexSegment(seg string) bool {
	return len(seg) > 2 && seg[0] == '[' && seg[len(seg)-1] == ']'
}

func parseIndex(seg string) (int, bool) {
	if isIndexSegment(seg) {
		seg = seg[1 : len(seg)-1]
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// DeepCopy returns a structurally independent copy of a decoded JSON value.
// Maps and slices are copied recursively; scalars are shared.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}
