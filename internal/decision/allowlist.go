package decision

import (
	"sort"
	"strings"
)

// AllowList answers whether a client may receive substituted content.
// Implementations must be safe for concurrent use.
type AllowList interface {
	Allowed(clientID string) bool
}

// StaticAllowList is an immutable set of client identifiers.
type StaticAllowList struct {
	ids map[string]struct{}
}

// NewStaticAllowList builds a list from ids. Surrounding whitespace is trimmed and
// empty entries are ignored.
func NewStaticAllowList(ids ...string) *StaticAllowList {
	l := &StaticAllowList{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			l.ids[id] = struct{}{}
		}
	}
	return l
}

// ParseAllowList reads the comma separated form, e.g. "1.2.3.4, 5.6.7.8".
func ParseAllowList(s string) *StaticAllowList {
	return NewStaticAllowList(strings.Split(s, ",")...)
}

// Allowed implements AllowList.
func (l *StaticAllowList) Allowed(clientID string) bool {
	if l == nil {
		return false
	}
	_, ok := l.ids[clientID]
	return ok
}

// Len returns the number of entries.
func (l *StaticAllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

// IDs returns the entries in sorted order.
func (l *StaticAllowList) IDs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
