package sqlite

import (
	"strconv"
	"strings"

	"github.com/schemakit/schemakit/schema"
)

// parseColumnType maps a declared SQLite column type like
// "VARCHAR(255)" or "UNSIGNED BIG INT" to the abstract column shape.
// SQLite stores whatever it is given; the declared type is a hint, so the
// mapping follows the same name-based rules SQLite's own type affinity uses.
func parseColumnType(declType string) schema.ColumnSchema {
	col := schema.ColumnSchema{DBType: declType}

	base := declType
	if i := strings.IndexByte(base, '('); i >= 0 {
		parseTypeArgs(base[i:], &col)
		base = base[:i]
	}
	upper := strings.ToUpper(strings.TrimSpace(base))
	col.Unsigned = strings.Contains(upper, "UNSIGNED")

	switch {
	case strings.Contains(upper, "TINYINT"):
		col.Type = schema.TypeTinyInt
	case strings.Contains(upper, "SMALLINT"):
		col.Type = schema.TypeSmallInt
	case strings.Contains(upper, "BIGINT"), strings.Contains(upper, "BIG INT"),
		strings.Contains(upper, "INT8"):
		col.Type = schema.TypeBigInt
	case strings.Contains(upper, "INT"):
		col.Type = schema.TypeInteger
	case strings.Contains(upper, "BOOL"):
		col.Type = schema.TypeBoolean
	case strings.Contains(upper, "DECIMAL"), strings.Contains(upper, "NUMERIC"):
		col.Type = schema.TypeDecimal
	case strings.Contains(upper, "DOUB"), strings.Contains(upper, "REAL"),
		strings.Contains(upper, "FLOA"):
		col.Type = schema.TypeDouble
	case strings.Contains(upper, "JSON"):
		col.Type = schema.TypeJSON
	case strings.Contains(upper, "BLOB"), upper == "":
		col.Type = schema.TypeBinary
	case strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		col.Type = schema.TypeText
	case strings.Contains(upper, "CHARACTER"), strings.Contains(upper, "VARCHAR"),
		strings.Contains(upper, "NCHAR"):
		col.Type = schema.TypeString
	case upper == "CHAR":
		col.Type = schema.TypeChar
	case strings.Contains(upper, "DATETIME"), strings.Contains(upper, "TIMESTAMP"):
		col.Type = schema.TypeTimestamp
	case strings.Contains(upper, "DATE"):
		col.Type = schema.TypeDate
	case strings.Contains(upper, "TIME"):
		col.Type = schema.TypeTime
	default:
		col.Type = schema.TypeString
	}
	return col
}

// parseTypeArgs fills size or precision/scale from a "(10,2)" suffix.
func parseTypeArgs(args string, col *schema.ColumnSchema) {
	args = strings.Trim(args, "() ")
	parts := strings.SplitN(args, ",", 2)
	first, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return
	}
	if len(parts) == 1 {
		col.Size = first
		return
	}
	col.Precision = first
	if scale, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
		col.Scale = scale
	}
}

// parseChecks extracts CHECK constraint expressions from a CREATE TABLE
// statement. SQLite keeps the original statement text in sqlite_master; the
// PRAGMA interface has no check introspection, so the text is the only
// source. Named constraints ("CONSTRAINT x CHECK (...)") keep their name.
// Keyword and paren scanning run over a literal-masked copy of the text so
// quoted strings like DEFAULT 'check (x)' cannot fabricate a constraint.
func parseChecks(createSQL string) []schema.Check {
	var checks []schema.Check
	masked := maskLiterals(createSQL)
	upper := strings.ToUpper(masked)

	for pos := 0; ; {
		i := indexWord(upper, "CHECK", pos)
		if i < 0 {
			break
		}
		pos = i + len("CHECK")

		open := strings.IndexByte(masked[pos:], '(')
		if open < 0 {
			break
		}
		open += pos

		end, ok := balancedParens(masked, open)
		if !ok {
			break
		}
		pos = end

		checks = append(checks, schema.Check{
			Constraint: schema.Constraint{Name: checkName(createSQL, masked, i)},
			Expression: createSQL[open:end],
		})
	}
	return checks
}

// maskLiterals blanks the contents of quoted regions, keeping the quotes and
// every offset intact. Doubled quotes escape themselves inside a literal.
func maskLiterals(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		q := b[i]
		if q != '\'' && q != '"' {
			continue
		}
		for i++; i < len(b); i++ {
			if b[i] == q {
				if i+1 < len(b) && b[i+1] == q {
					b[i], b[i+1] = ' ', ' '
					i++
					continue
				}
				break
			}
			b[i] = ' '
		}
	}
	return string(b)
}

// indexWord finds word in s at or after from, requiring identifier
// boundaries on both sides so names like "users_age_check" do not match.
func indexWord(s, word string, from int) int {
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		if (i == 0 || !isIdentChar(s[i-1])) && (end >= len(s) || !isIdentChar(s[end])) {
			return i
		}
		from = end
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

// balancedParens scans the parenthesized group starting at open and returns
// the index just past its closing paren.
func balancedParens(s string, open int) (end int, ok bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// checkName looks backwards from a CHECK keyword for a preceding
// "CONSTRAINT <name>" clause. The keyword search runs on the masked text;
// the name itself comes from the original.
func checkName(createSQL, masked string, checkPos int) string {
	upper := strings.ToUpper(masked[:checkPos])
	i := strings.LastIndex(upper, "CONSTRAINT")
	if i < 0 {
		return ""
	}
	name := strings.TrimSpace(createSQL[i+len("CONSTRAINT") : checkPos])
	if name == "" || strings.ContainsAny(name, ",()") {
		return ""
	}
	return strings.Trim(name, `"`)
}
