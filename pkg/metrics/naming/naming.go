// Package naming implements the metric-name label codec: a base name and
// an optional set of labels packed into a single string of the form
//
//	base*key1:value1;key2:value2;
//
// The packed form lets label-rich metrics live in plain string-keyed
// registries. Base names and label keys must not contain the '*', ';' or
// ':' delimiter characters; label values may contain ':'.
package naming

import "strings"

const (
	nameDelimiter     = '*'
	labelDelimiter    = ';'
	keyValueDelimiter = ':'
)

// ParsedName is the structured form of a packed metric name.
type ParsedName struct {
	Base   string
	Labels map[string]string
}

// Parse decodes a packed metric name. It reports ok=false for the empty
// string, for names with more than one '*', and for label segments without
// a key/value delimiter. A name may parse successfully with an empty base
// (for example "*k:v;"); callers decide whether such names are usable.
func Parse(raw string) (ParsedName, bool) {
	if raw == "" {
		return ParsedName{}, false
	}

	parts := strings.Split(raw, string(nameDelimiter))
	if len(parts) > 2 {
		return ParsedName{}, false
	}

	parsed := ParsedName{Base: parts[0], Labels: map[string]string{}}
	if len(parts) == 1 {
		return parsed, true
	}

	for _, segment := range strings.Split(parts[1], string(labelDelimiter)) {
		if segment == "" {
			continue
		}
		kv := strings.SplitN(segment, string(keyValueDelimiter), 2)
		if len(kv) != 2 {
			return ParsedName{}, false
		}
		parsed.Labels[kv[0]] = kv[1]
	}
	return parsed, true
}

// Builder assembles a packed metric name. Builders are cheap; construct one
// per metric name and keep the result.
type Builder struct {
	sb strings.Builder
}

// NewBuilder starts a packed name with the given base.
func NewBuilder(base string) *Builder {
	b := &Builder{}
	b.sb.WriteString(base)
	b.sb.WriteByte(nameDelimiter)
	return b
}

// Label appends one label pair.
func (b *Builder) Label(key, value string) *Builder {
	b.sb.WriteString(key)
	b.sb.WriteByte(keyValueDelimiter)
	b.sb.WriteString(value)
	b.sb.WriteByte(labelDelimiter)
	return b
}

// Build returns the packed name.
func (b *Builder) Build() string {
	return b.sb.String()
}
