package schema

import "strings"

// NormalizeRowKeys returns a copy of row with every field name lowercased.
// Engines differ in the key casing of catalog result rows; normalizing lets
// callers index fields without caring which engine produced them.
func NormalizeRowKeys(row map[string]interface{}) map[string]interface{} {
	if row == nil {
		return nil
	}
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[strings.ToLower(k)] = v
	}
	return out
}

// NormalizeRowsKeys applies NormalizeRowKeys to each row, preserving order.
func NormalizeRowsKeys(rows []map[string]interface{}) []map[string]interface{} {
	if rows == nil {
		return nil
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = NormalizeRowKeys(row)
	}
	return out
}
