package postgres

import (
	"strings"

	"github.com/schemakit/schemakit/schema"
)

// mapColumnType converts an information_schema data_type/udt_name pair to
// the abstract column type. PostgreSQL has no unsigned integers, so
// signedness never downgrades a mapping here.
func mapColumnType(dataType, udtName string) schema.ColumnType {
	switch udtName {
	case "int2":
		return schema.TypeSmallInt
	case "int4":
		return schema.TypeInteger
	case "int8":
		return schema.TypeBigInt
	case "float4":
		return schema.TypeFloat
	case "float8":
		return schema.TypeDouble
	case "numeric":
		return schema.TypeDecimal
	case "money":
		return schema.TypeMoney
	case "bool":
		return schema.TypeBoolean
	case "bytea":
		return schema.TypeBinary
	case "json", "jsonb":
		return schema.TypeJSON
	case "text":
		return schema.TypeText
	case "bpchar":
		return schema.TypeChar
	case "varchar":
		return schema.TypeString
	case "date":
		return schema.TypeDate
	case "time", "timetz":
		return schema.TypeTime
	case "timestamp", "timestamptz":
		return schema.TypeTimestamp
	}

	// Fall back on the generic data_type for domains and less common
	// built-ins.
	switch strings.ToLower(dataType) {
	case "smallint":
		return schema.TypeSmallInt
	case "integer":
		return schema.TypeInteger
	case "bigint":
		return schema.TypeBigInt
	case "real":
		return schema.TypeFloat
	case "double precision":
		return schema.TypeDouble
	case "numeric", "decimal":
		return schema.TypeDecimal
	case "boolean":
		return schema.TypeBoolean
	case "text":
		return schema.TypeText
	case "character":
		return schema.TypeChar
	case "character varying":
		return schema.TypeString
	case "date":
		return schema.TypeDate
	case "json", "jsonb":
		return schema.TypeJSON
	default:
		return schema.TypeString
	}
}
