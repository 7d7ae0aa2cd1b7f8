package record

import "strings"

// TagIndex provides typed lookups over a record's raw tag arrays. It is a
// pure view of the record: no side effects, and absence is always reported
// as an empty result, never an error.
//
// A tag with fewer than two elements (name plus at least one value) is
// treated as absent for value retrieval.
type TagIndex struct {
	tags [][]string
}

// Index builds a TagIndex for the record.
func Index(r Record) TagIndex {
	return TagIndex{tags: r.Tags}
}

// IndexTags builds a TagIndex over a raw tag list.
func IndexTags(tags [][]string) TagIndex {
	return TagIndex{tags: tags}
}

// FirstValue returns the first positional value of the first tag with the
// given name. ok is false when no such tag carries a value.
func (ti TagIndex) FirstValue(name string) (string, bool) {
	for _, tag := range ti.tags {
		if len(tag) < 2 || tag[0] != name {
			continue
		}
		return tag[1], true
	}
	return "", false
}

// AllValues returns every positional value across all tags with the given
// name, in tag order.
func (ti TagIndex) AllValues(name string) []string {
	var values []string
	for _, tag := range ti.tags {
		if len(tag) < 2 || tag[0] != name {
			continue
		}
		values = append(values, tag[1:]...)
	}
	return values
}

// Named returns the full tag arrays for every tag with the given name,
// preserving order. Each returned array includes the name element. Used for
// multi-value tag families where trailing elements name several targets.
func (ti TagIndex) Named(name string) [][]string {
	var tags [][]string
	for _, tag := range ti.tags {
		if len(tag) < 2 || tag[0] != name {
			continue
		}
		tags = append(tags, append([]string(nil), tag...))
	}
	return tags
}

// Has reports whether any tag with the given name carries a value.
func (ti TagIndex) Has(name string) bool {
	_, ok := ti.FirstValue(name)
	return ok
}

// FirstValueTrimmed is FirstValue with surrounding whitespace removed; a
// whitespace-only value counts as absent.
func (ti TagIndex) FirstValueTrimmed(name string) (string, bool) {
	value, ok := ti.FirstValue(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
