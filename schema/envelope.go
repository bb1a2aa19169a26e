package schema

import "encoding/json"

// schemaCacheVersion stamps persisted envelopes. Bump it whenever the
// envelope format or the constraint types change shape; entries written
// under any other version are discarded on load and rebuilt from the engine.
const schemaCacheVersion = 1

// tableEntry is the in-process metadata for one table identity. Kinds are
// populated lazily; loaded records which kinds have been resolved so that
// "resolved, none found" is distinguishable from "never resolved".
type tableEntry struct {
	loaded map[Kind]bool

	schema      *TableSchema
	primaryKey  *Constraint
	uniques     []Constraint
	foreignKeys []ForeignKey
	indexes     []Index
	defaults    []DefaultValue
	checks      []Check
}

func newTableEntry() *tableEntry {
	return &tableEntry{loaded: make(map[Kind]bool)}
}

// envelope is the persisted form of a tableEntry: the same kind-map plus a
// version stamp.
type envelope struct {
	Version     int            `json:"version"`
	Loaded      []string       `json:"loaded"`
	Schema      *TableSchema   `json:"schema,omitempty"`
	PrimaryKey  *Constraint    `json:"primary_key,omitempty"`
	Uniques     []Constraint   `json:"uniques,omitempty"`
	ForeignKeys []ForeignKey   `json:"foreign_keys,omitempty"`
	Indexes     []Index        `json:"indexes,omitempty"`
	Defaults    []DefaultValue `json:"defaults,omitempty"`
	Checks      []Check        `json:"checks,omitempty"`
}

// encode serializes the entry with the current version stamp.
func (e *tableEntry) encode() ([]byte, error) {
	env := envelope{
		Version:     schemaCacheVersion,
		Schema:      e.schema,
		PrimaryKey:  e.primaryKey,
		Uniques:     e.uniques,
		ForeignKeys: e.foreignKeys,
		Indexes:     e.indexes,
		Defaults:    e.defaults,
		Checks:      e.checks,
	}
	for _, k := range Kinds() {
		if e.loaded[k] {
			env.Loaded = append(env.Loaded, k.String())
		}
	}
	return json.Marshal(env)
}

// decodeEntry deserializes a persisted envelope. A payload that is not a
// structured envelope, lacks a version stamp, or carries a different version
// is treated as if no cache entry existed: ok is false and the caller falls
// back to the engine loader.
func decodeEntry(data []byte) (entry *tableEntry, ok bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Version != schemaCacheVersion {
		return nil, false
	}

	entry = newTableEntry()
	entry.schema = env.Schema
	entry.primaryKey = env.PrimaryKey
	entry.uniques = env.Uniques
	entry.foreignKeys = env.ForeignKeys
	entry.indexes = env.Indexes
	entry.defaults = env.Defaults
	entry.checks = env.Checks
	for _, name := range env.Loaded {
		k, err := ParseKind(name)
		if err != nil {
			// A kind we no longer know about; ignore it rather than
			// reject the whole envelope.
			continue
		}
		entry.loaded[k] = true
	}
	return entry, true
}
