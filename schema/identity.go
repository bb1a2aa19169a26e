package schema

import "strings"

// TableIdentity is a table reference resolved against a session's table
// prefix. Raw is the normalized form used as the cache and lookup key; two
// identities refer to the same table iff their Raw values are equal.
type TableIdentity struct {
	Raw    string // normalized name, schema-qualified if one was given
	Schema string // schema part, empty when unqualified
	Name   string // bare table name
}

// ResolveTableName normalizes a table reference. Templating markers
// ("{{" and "}}") are stripped and a leading "%" placeholder is substituted
// with the configured table prefix, so "{{%posts}}" with prefix "app_"
// resolves to "app_posts". A qualified name is split on its last dot into
// schema and table parts.
func ResolveTableName(name, prefix string) TableIdentity {
	raw := strings.ReplaceAll(name, "{{", "")
	raw = strings.ReplaceAll(raw, "}}", "")
	raw = strings.ReplaceAll(raw, "%", prefix)

	id := TableIdentity{Raw: raw, Name: raw}
	if i := strings.LastIndex(raw, "."); i >= 0 {
		id.Schema = raw[:i]
		id.Name = raw[i+1:]
	}
	return id
}

// Qualified returns the identity for name inside schema. An empty schema
// leaves the name unqualified (current/default schema).
func Qualified(schema, name string) TableIdentity {
	if schema == "" {
		return TableIdentity{Raw: name, Name: name}
	}
	return TableIdentity{Raw: schema + "." + name, Schema: schema, Name: name}
}
