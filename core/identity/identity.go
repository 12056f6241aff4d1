// Package identity correlates v3 ids with v4 ids through natural keys (course slug, student email).
package identity

// Map is a v3 id → v4 id correspondence for one entity kind, built once per run.
type Map struct {
	kind      string
	entries   map[string]string
	unmatched []string
}

func NewMap(kind string) *Map {
	return &Map{kind: kind, entries: make(map[string]string)}
}

func (m *Map) Kind() string { return m.kind }

func (m *Map) Set(srcID, destID string) { m.entries[srcID] = destID }

// Lookup never defaults: a missing entry means the dependent record must be skipped.
func (m *Map) Lookup(srcID string) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.entries[srcID]
	return id, ok
}

func (m *Map) Len() int { return len(m.entries) }

// Unmatched returns the natural keys that had no v4 counterpart.
func (m *Map) Unmatched() []string { return m.unmatched }

func (m *Map) markUnmatched(key string) { m.unmatched = append(m.unmatched, key) }

// StudentRef is where one v3 student lives in v4: a user and its student profile.
type StudentRef struct {
	UserID    string `json:"userId"`
	StudentID string `json:"studentId"`
}

// StudentMap is a v3 student id → StudentRef correspondence.
type StudentMap struct {
	entries   map[string]StudentRef
	unmatched []string
}

func NewStudentMap() *StudentMap {
	return &StudentMap{entries: make(map[string]StudentRef)}
}

func (m *StudentMap) Set(srcID string, ref StudentRef) { m.entries[srcID] = ref }

func (m *StudentMap) Lookup(srcID string) (StudentRef, bool) {
	if m == nil {
		return StudentRef{}, false
	}
	ref, ok := m.entries[srcID]
	return ref, ok
}

func (m *StudentMap) Len() int { return len(m.entries) }

func (m *StudentMap) Unmatched() []string { return m.unmatched }

func (m *StudentMap) markUnmatched(key string) { m.unmatched = append(m.unmatched, key) }
