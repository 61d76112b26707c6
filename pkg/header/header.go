// Package header provides an ordered, case-insensitive HTTP header
// collection used by the request parser and re-serializer.
package header

import "strings"

// hopByHop lists the header names stripped from every serialization.
// Fixed list; no others are ever stripped.
var hopByHop = map[string]bool{
	"connection":       true,
	"proxy-connection": true,
	"keep-alive":       true,
}

const defaultCapacity = 8

// entry is a single (name, value) pair. A tombstoned entry is skipped by
// iteration and serialization; its slot is not reused, since Set always
// appends.
type entry struct {
	name       string
	value      string
	tombstoned bool
}

// Table is an ordered sequence of headers with case-insensitive name
// lookup. At most one non-tombstoned entry exists per case-insensitive
// name; insertion order of non-tombstoned entries is emission order.
type Table struct {
	entries []entry
	index   map[string]int // lower(name) -> index into entries
}

// New returns an empty Table with the default initial capacity.
func New() *Table {
	return &Table{
		entries: make([]entry, 0, defaultCapacity),
		index:   make(map[string]int, defaultCapacity),
	}
}

// Set removes any existing entry matching name case-insensitively, then
// appends (name, value) at the end. This changes relative order; that is
// intentional and observable (spec invariant: last write wins, in
// insertion-order position of the latest Set call).
func (t *Table) Set(name, value string) {
	key := strings.ToLower(name)
	if i, ok := t.index[key]; ok {
		t.entries[i].tombstoned = true
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, entry{name: name, value: value})
}

// Get returns the value of the first non-tombstoned entry whose name
// matches name case-insensitively, and whether it was found.
func (t *Table) Get(name string) (string, bool) {
	key := strings.ToLower(name)
	i, ok := t.index[key]
	if !ok || t.entries[i].tombstoned {
		return "", false
	}
	return t.entries[i].value, true
}

// Remove tombstones the entry matching name, if present. No compaction is
// performed. Returns whether an entry was found and removed.
func (t *Table) Remove(name string) bool {
	key := strings.ToLower(name)
	i, ok := t.index[key]
	if !ok || t.entries[i].tombstoned {
		return false
	}
	t.entries[i].tombstoned = true
	delete(t.index, key)
	return true
}

// Len returns the number of non-tombstoned entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if !e.tombstoned {
			n++
		}
	}
	return n
}

// Serialize writes every non-tombstoned entry as "name: value\r\n", in
// insertion order, skipping the hop-by-hop names (Connection,
// Proxy-Connection, Keep-Alive; case-insensitive). A final "\r\n"
// terminates the block after the last entry.
func (t *Table) Serialize(out *strings.Builder) {
	for _, e := range t.entries {
		if e.tombstoned || hopByHop[strings.ToLower(e.name)] {
			continue
		}
		out.WriteString(e.name)
		out.WriteString(": ")
		out.WriteString(e.value)
		out.WriteString("\r\n")
	}
	out.WriteString("\r\n")
}

// SerializedLength returns the exact byte count Serialize will write for
// the table's current contents. Callers that need a total request-head
// length (method/path/version lines plus this) must never under-report,
// so this is computed, not estimated.
func (t *Table) SerializedLength() int {
	n := 2 // terminating CRLF
	for _, e := range t.entries {
		if e.tombstoned || hopByHop[strings.ToLower(e.name)] {
			continue
		}
		n += len(e.name) + len(": ") + len(e.value) + len("\r\n")
	}
	return n
}
