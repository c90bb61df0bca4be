package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// IDSet is a set of entity IDs persisted as a JSONB array. Order is not
// significant; helpers keep the slice duplicate-free.
type IDSet []uuid.UUID

// Value implements driver.Valuer for JSONB storage
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		s = IDSet{}
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *IDSet) Scan(value interface{}) error {
	if value == nil {
		*s = IDSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for IDSet: %T", value)
	}
	if len(data) == 0 {
		*s = IDSet{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Contains reports whether id is in the set
func (s IDSet) Contains(id uuid.UUID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns the set with id added; no-op when already present
func (s IDSet) Add(id uuid.UUID) IDSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Remove returns the set with id removed; no-op when absent
func (s IDSet) Remove(id uuid.UUID) IDSet {
	out := make(IDSet, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Lowest returns the smallest ID by string order, used to pick a
// deterministic leadership successor. ok is false when the set is empty.
func (s IDSet) Lowest() (uuid.UUID, bool) {
	if len(s) == 0 {
		return uuid.Nil, false
	}
	low := s[0]
	for _, v := range s[1:] {
		if v.String() < low.String() {
			low = v
		}
	}
	return low, true
}

// TagSet is a set of normalized tags persisted as a JSONB array.
type TagSet []string

// Value implements driver.Valuer for JSONB storage
func (t TagSet) Value() (driver.Value, error) {
	if t == nil {
		t = TagSet{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB retrieval
func (t *TagSet) Scan(value interface{}) error {
	if value == nil {
		*t = TagSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for TagSet: %T", value)
	}
	if len(data) == 0 {
		*t = TagSet{}
		return nil
	}
	return json.Unmarshal(data, t)
}

// Contains reports whether the normalized form of tag is in the set
func (t TagSet) Contains(tag string) bool {
	tag = NormalizeTag(tag)
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Intersection counts tags present in both sets, comparing normalized forms
func (t TagSet) Intersection(other TagSet) int {
	seen := make(map[string]struct{}, len(t))
	for _, v := range t {
		seen[NormalizeTag(v)] = struct{}{}
	}
	count := 0
	for _, v := range other {
		if _, ok := seen[NormalizeTag(v)]; ok {
			count++
		}
	}
	return count
}

// NormalizeTag canonicalizes a tag: trimmed, first letter upper-cased,
// rest lower-cased. "java", "JAVA" and "Java" all normalize to "Java".
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(tag)
	return string(unicode.ToUpper(first)) + strings.ToLower(tag[size:])
}

// NormalizeTags normalizes every tag and drops empties and duplicates,
// preserving first-seen order.
func NormalizeTags(tags []string) TagSet {
	out := make(TagSet, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		norm := NormalizeTag(tag)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
