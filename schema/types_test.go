package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_StringRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("bogus")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestColumnType_JSONUsesSymbolicNames(t *testing.T) {
	col := ColumnSchema{Name: "id", Type: TypeBigInt}

	data, err := json.Marshal(col)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"bigint"`)

	var back ColumnSchema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TypeBigInt, back.Type)
}

func TestReferentialAction_RoundTrip(t *testing.T) {
	actions := []ReferentialAction{
		ActionNoAction, ActionRestrict, ActionCascade, ActionSetNull, ActionSetDefault,
	}
	for _, a := range actions {
		parsed, err := ParseReferentialAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	_, err := ParseReferentialAction("truncate")
	assert.Error(t, err)
}

func TestTableSchema_ColumnLookup(t *testing.T) {
	table := &TableSchema{
		Name:     "posts",
		FullName: "posts",
		Columns: []ColumnSchema{
			{Name: "id", Type: TypeBigInt, PrimaryKey: true},
			{Name: "title", Type: TypeString, Size: 255},
		},
		PrimaryKey: []string{"id"},
	}

	assert.Equal(t, []string{"id", "title"}, table.ColumnNames())
	require.NotNil(t, table.Column("title"))
	assert.Equal(t, 255, table.Column("title").Size)
	assert.Nil(t, table.Column("missing"))
}

func TestEnvelope_VersionStampRequired(t *testing.T) {
	// An envelope missing the version stamp decodes to version zero and is
	// rejected.
	_, ok := decodeEntry([]byte(`{"loaded":["primary_key"]}`))
	assert.False(t, ok)

	_, ok = decodeEntry([]byte(`[1,2,3]`))
	assert.False(t, ok)
}

func TestEnvelope_UnknownLoadedKindIgnored(t *testing.T) {
	entry := newTableEntry()
	entry.primaryKey = &Constraint{Columns: []string{"id"}}
	entry.loaded[KindPrimaryKey] = true

	data, err := entry.encode()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["loaded"] = []string{"primary_key", "sequences"}
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	decoded, ok := decodeEntry(data)
	require.True(t, ok)
	assert.True(t, decoded.loaded[KindPrimaryKey])
	assert.Len(t, decoded.loaded, 1)
}
