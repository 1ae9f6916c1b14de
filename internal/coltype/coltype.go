// Package coltype parses source system column type strings such as
// "array<struct<a:int,b:varchar(10)>>" into catalog data types.
package coltype

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"metacatalog/internal/domain"
)

// Parsed is the catalog form of a column type string
type Parsed struct {
	DataType        domain.DataType
	ArrayDataType   domain.DataType
	DataTypeDisplay string
	DataLength      int
	// Children holds the members of a struct
	Children []domain.Column
}

// Apply copies the parsed type onto col without overwriting values the
// column already carries
func (p *Parsed) Apply(col *domain.Column) {
	col.DataType = p.DataType
	if col.ArrayDataType == "" {
		col.ArrayDataType = p.ArrayDataType
	}
	if col.DataTypeDisplay == "" {
		col.DataTypeDisplay = p.DataTypeDisplay
	}
	if col.DataLength == 0 {
		col.DataLength = p.DataLength
	}
	if len(col.Children) == 0 {
		col.Children = p.Children
	}
}

var brackets = map[rune]rune{'(': ')', '[': ']', '{': '}', '<': '>'}

var (
	fixedString  = regexp.MustCompile(`(?i)^(var)?char\(\s*(\d+)\s*\)$`)
	fixedDecimal = regexp.MustCompile(`(?i)^(decimal|numeric)(\(\s*(\d+)\s*,\s*(\d+)\s*\))?$`)
	sized        = regexp.MustCompile(`^([A-Za-z_][\w ]*?)\s*\(\s*(\d+)\s*\)$`)
)

// sourceTypes maps upper-cased source type names to catalog data types
var sourceTypes = map[string]domain.DataType{
	"ARRAY":                       domain.DataTypeArray,
	"BIGINT":                      domain.DataTypeBigInt,
	"BIGNUMERIC":                  domain.DataTypeNumeric,
	"BIGSERIAL":                   domain.DataTypeBigInt,
	"BINARY":                      domain.DataTypeBinary,
	"BIT":                         domain.DataTypeInt,
	"BLOB":                        domain.DataTypeBlob,
	"BOOL":                        domain.DataTypeBoolean,
	"BOOLEAN":                     domain.DataTypeBoolean,
	"BPCHAR":                      domain.DataTypeChar,
	"BYTEINT":                     domain.DataTypeByteInt,
	"BYTES":                       domain.DataTypeBytes,
	"CHAR":                        domain.DataTypeChar,
	"CHARACTER VARYING":           domain.DataTypeVarchar,
	"CURSOR":                      domain.DataTypeBinary,
	"DATE":                        domain.DataTypeDate,
	"DATETIME":                    domain.DataTypeDatetime,
	"DATETIME2":                   domain.DataTypeDatetime,
	"DATETIMEOFFSET":              domain.DataTypeDatetime,
	"DECIMAL":                     domain.DataTypeDecimal,
	"DOUBLE":                      domain.DataTypeDouble,
	"DOUBLE PRECISION":            domain.DataTypeDouble,
	"ENUM":                        domain.DataTypeEnum,
	"FLOAT":                       domain.DataTypeFloat,
	"FLOAT4":                      domain.DataTypeFloat,
	"FLOAT64":                     domain.DataTypeDouble,
	"FLOAT8":                      domain.DataTypeDouble,
	"GEOGRAPHY":                   domain.DataTypeGeography,
	"HYPERLOGLOG":                 domain.DataTypeBinary,
	"IMAGE":                       domain.DataTypeBinary,
	"INT":                         domain.DataTypeInt,
	"INT2":                        domain.DataTypeSmallInt,
	"INT4":                        domain.DataTypeInt,
	"INT64":                       domain.DataTypeBigInt,
	"INT8":                        domain.DataTypeBigInt,
	"INTEGER":                     domain.DataTypeInt,
	"INTERVAL":                    domain.DataTypeInterval,
	"INTERVAL DAY TO SECOND":      domain.DataTypeInterval,
	"INTERVAL YEAR TO MONTH":      domain.DataTypeInterval,
	"JSON":                        domain.DataTypeJSON,
	"LONG RAW":                    domain.DataTypeBinary,
	"LONG VARCHAR":                domain.DataTypeVarchar,
	"LONGBLOB":                    domain.DataTypeLongBlob,
	"MAP":                         domain.DataTypeMap,
	"MEDIUMBLOB":                  domain.DataTypeMediumBlob,
	"MEDIUMINT":                   domain.DataTypeInt,
	"MEDIUMTEXT":                  domain.DataTypeMediumText,
	"MONEY":                       domain.DataTypeNumber,
	"NCHAR":                       domain.DataTypeChar,
	"NTEXT":                       domain.DataTypeText,
	"NULL":                        domain.DataTypeNull,
	"NUMBER":                      domain.DataTypeNumber,
	"NUMERIC":                     domain.DataTypeNumeric,
	"NVARCHAR":                    domain.DataTypeVarchar,
	"OBJECT":                      domain.DataTypeJSON,
	"RAW":                         domain.DataTypeBinary,
	"REAL":                        domain.DataTypeFloat,
	"ROWID":                       domain.DataTypeVarchar,
	"ROWVERSION":                  domain.DataTypeNumber,
	"SET":                         domain.DataTypeSet,
	"SMALLDATETIME":               domain.DataTypeDatetime,
	"SMALLINT":                    domain.DataTypeSmallInt,
	"SMALLMONEY":                  domain.DataTypeNumber,
	"SMALLSERIAL":                 domain.DataTypeSmallInt,
	"SQL_VARIANT":                 domain.DataTypeVarbinary,
	"STRING":                      domain.DataTypeString,
	"STRUCT":                      domain.DataTypeStruct,
	"TABLE":                       domain.DataTypeBinary,
	"TEXT":                        domain.DataTypeText,
	"TIME":                        domain.DataTypeTime,
	"TIMESTAMP":                   domain.DataTypeTimestamp,
	"TIMESTAMP WITHOUT TIME ZONE": domain.DataTypeTimestamp,
	"TIMESTAMP_LTZ":               domain.DataTypeTimestamp,
	"TIMESTAMP_TZ":                domain.DataTypeTimestamp,
	"TIMESTAMPTZ":                 domain.DataTypeTimestamp,
	"TIMETZ":                      domain.DataTypeTimestamp,
	"TINYINT":                     domain.DataTypeTinyInt,
	"UNION":                       domain.DataTypeUnion,
	"UROWID":                      domain.DataTypeVarchar,
	"UUID":                        domain.DataTypeUUID,
	"VARBINARY":                   domain.DataTypeVarbinary,
	"VARCHAR":                     domain.DataTypeVarchar,
	"VARIANT":                     domain.DataTypeJSON,
	"XML":                         domain.DataTypeBinary,
	"XMLTYPE":                     domain.DataTypeBinary,
}

// Parse converts a column type string into its catalog form. Unknown
// primitive types map to NULL; malformed complex types are errors.
func Parse(display string) (*Parsed, error) {
	s := strings.TrimSpace(display)
	if s == "" {
		return nil, fmt.Errorf("empty data type")
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "array<"):
		inner, err := enclosed(s, len("array<"))
		if err != nil {
			return nil, err
		}
		elem, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return &Parsed{DataType: domain.DataTypeArray, ArrayDataType: elem.DataType, DataTypeDisplay: s}, nil

	case strings.HasPrefix(lower, "map<"):
		inner, err := enclosed(s, len("map<"))
		if err != nil {
			return nil, err
		}
		parts, err := splitTopLevel(inner, ',')
		if err != nil {
			return nil, err
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("the map type format is map<key_type,value_type>, got %s", s)
		}
		for _, part := range parts {
			if _, err := Parse(part); err != nil {
				return nil, err
			}
		}
		return &Parsed{DataType: domain.DataTypeMap, DataTypeDisplay: s}, nil

	case strings.HasPrefix(lower, "uniontype<"):
		inner, err := enclosed(s, len("uniontype<"))
		if err != nil {
			return nil, err
		}
		parts, err := splitTopLevel(inner, ',')
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			if _, err := Parse(part); err != nil {
				return nil, err
			}
		}
		return &Parsed{DataType: domain.DataTypeUnion, DataTypeDisplay: s}, nil

	case strings.HasPrefix(lower, "struct<"):
		inner, err := enclosed(s, len("struct<"))
		if err != nil {
			return nil, err
		}
		return parseStruct(inner)

	case strings.Contains(s, ":"):
		return parseStruct(s)
	}

	if err := checkBalanced(s); err != nil {
		return nil, err
	}
	return parsePrimitive(s), nil
}

// enclosed returns the text between the opening bracket ending at offset
// and the final '>'
func enclosed(s string, offset int) (string, error) {
	if !strings.HasSuffix(s, ">") {
		return "", fmt.Errorf("expected '>' at the end of %s", s)
	}
	inner := s[offset : len(s)-1]
	if err := checkBalanced(inner); err != nil {
		return "", err
	}
	return inner, nil
}

func parseStruct(fields string) (*Parsed, error) {
	parts, err := splitTopLevel(fields, ',')
	if err != nil {
		return nil, err
	}

	children := make([]domain.Column, 0, len(parts))
	for _, part := range parts {
		nameAndType, err := splitTopLevel(part, ':')
		if err != nil {
			return nil, err
		}
		if len(nameAndType) != 2 {
			return nil, fmt.Errorf("expected field_name:field_type, got %s", part)
		}

		name := strings.TrimSpace(nameAndType[0])
		if strings.HasPrefix(name, "`") {
			if len(name) < 2 || !strings.HasSuffix(name, "`") {
				return nil, fmt.Errorf("unterminated quoted field name %s", name)
			}
			name = name[1 : len(name)-1]
		}
		if name == "" {
			return nil, fmt.Errorf("empty field name in %s", part)
		}

		fieldType, err := Parse(nameAndType[1])
		if err != nil {
			return nil, err
		}
		children = append(children, domain.Column{
			Name:            name,
			DataType:        fieldType.DataType,
			ArrayDataType:   fieldType.ArrayDataType,
			DataTypeDisplay: fieldType.DataTypeDisplay,
			DataLength:      fieldType.DataLength,
			Children:        fieldType.Children,
		})
	}

	return &Parsed{
		DataType:        domain.DataTypeStruct,
		DataTypeDisplay: "struct<" + fields + ">",
		Children:        children,
	}, nil
}

func parsePrimitive(s string) *Parsed {
	if t, ok := sourceTypes[strings.ToUpper(s)]; ok {
		return &Parsed{DataType: t, DataTypeDisplay: s}
	}

	if m := fixedString.FindStringSubmatch(s); m != nil {
		t := domain.DataTypeChar
		if m[1] != "" {
			t = domain.DataTypeVarchar
		}
		n, _ := strconv.Atoi(m[2])
		return &Parsed{DataType: t, DataTypeDisplay: s, DataLength: n}
	}

	if m := fixedDecimal.FindStringSubmatch(s); m != nil {
		p := &Parsed{DataType: sourceTypes[strings.ToUpper(m[1])], DataTypeDisplay: s}
		if m[2] != "" {
			p.DataLength, _ = strconv.Atoi(m[3])
		}
		return p
	}

	if m := sized.FindStringSubmatch(s); m != nil {
		if t, ok := sourceTypes[strings.ToUpper(strings.TrimSpace(m[1]))]; ok {
			n, _ := strconv.Atoi(m[2])
			return &Parsed{DataType: t, DataTypeDisplay: s, DataLength: n}
		}
	}

	return &Parsed{DataType: domain.DataTypeNull, DataTypeDisplay: s}
}

// splitTopLevel splits s on sep, ignoring separators nested in brackets
func splitTopLevel(s string, sep rune) ([]string, error) {
	var (
		parts []string
		buf   strings.Builder
		level int
	)
	for _, c := range s {
		switch {
		case isOpen(c):
			level++
			buf.WriteRune(c)
		case isClose(c):
			if level == 0 {
				return nil, fmt.Errorf("brackets are not correctly paired: %s", s)
			}
			level--
			buf.WriteRune(c)
		case c == sep && level == 0:
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(c)
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("brackets are not correctly paired: %s", s)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return nil, fmt.Errorf("%q cannot be the last char: %s", sep, s)
	}
	return append(parts, buf.String()), nil
}

func checkBalanced(s string) error {
	var stack []rune
	for _, c := range s {
		if closing, ok := brackets[c]; ok {
			stack = append(stack, closing)
			continue
		}
		if isClose(c) {
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return fmt.Errorf("brackets are not correctly paired: %s", s)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("brackets are not correctly paired: %s", s)
	}
	return nil
}

func isOpen(c rune) bool {
	_, ok := brackets[c]
	return ok
}

func isClose(c rune) bool {
	return c == ')' || c == ']' || c == '}' || c == '>'
}
