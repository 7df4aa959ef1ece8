package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// FieldKind identifies a known lead field.
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldID
	FieldName
	FieldEmail
	FieldPhone
	FieldJobTitle
	FieldCompany
	FieldIndustry
	FieldEmployees
	FieldRevenue
	FieldSource
	FieldStatus
	FieldLastActivity
	FieldMetadata
)

// metadataRoot is the only nested object on a lead.
const metadataRoot = "metadata"

var fieldNames = map[string]FieldKind{
	"id":           FieldID,
	"name":         FieldName,
	"email":        FieldEmail,
	"phone":        FieldPhone,
	"jobTitle":     FieldJobTitle,
	"company":      FieldCompany,
	"industry":     FieldIndustry,
	"employees":    FieldEmployees,
	"revenue":      FieldRevenue,
	"source":       FieldSource,
	"status":       FieldStatus,
	"lastActivity": FieldLastActivity,
}

// Field is a parsed field path. Key is only set for FieldMetadata.
type Field struct {
	Kind FieldKind
	Key  string
	Path string
}

// ParseField parses a dot path into a typed field.
// The path is split once on the first "."; only metadata supports nesting,
// and everything after the first dot is the metadata key.
func ParseField(path string) (Field, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Field{}, fmt.Errorf("field path is required")
	}

	outer, inner, nested := strings.Cut(path, ".")
	if nested {
		if outer != metadataRoot || inner == "" {
			return Field{}, fmt.Errorf("unsupported field path %q", path)
		}
		return Field{Kind: FieldMetadata, Key: inner, Path: path}, nil
	}

	kind, ok := fieldNames[path]
	if !ok {
		return Field{}, fmt.Errorf("unknown field %q", path)
	}
	return Field{Kind: kind, Path: path}, nil
}

// Value is a resolved lead field. Present is false for unset fields.
type Value struct {
	Present bool
	Raw     any
}

// Resolve reads the field from a lead. Unset string fields, nil pointers,
// missing metadata keys and JSON nulls all resolve to a non-present value.
// Empty string fields are additionally Blank.
func (f Field) Resolve(lead *domain.Lead) Value {
	if lead == nil {
		return Value{}
	}

	switch f.Kind {
	case FieldID:
		return stringValue(lead.ID)
	case FieldName:
		return stringValue(lead.Name)
	case FieldEmail:
		return stringValue(lead.Email)
	case FieldPhone:
		return stringValue(lead.Phone)
	case FieldJobTitle:
		return stringValue(lead.JobTitle)
	case FieldCompany:
		return stringValue(lead.Company)
	case FieldIndustry:
		return stringValue(lead.Industry)
	case FieldSource:
		return stringValue(lead.Source)
	case FieldStatus:
		return stringValue(lead.Status)
	case FieldEmployees:
		if lead.Employees == nil {
			return Value{}
		}
		return Value{Present: true, Raw: *lead.Employees}
	case FieldRevenue:
		if lead.Revenue == nil {
			return Value{}
		}
		return Value{Present: true, Raw: *lead.Revenue}
	case FieldLastActivity:
		if lead.LastActivity == nil {
			return Value{}
		}
		return Value{Present: true, Raw: *lead.LastActivity}
	case FieldMetadata:
		if lead.Metadata == nil {
			return Value{}
		}
		v, ok := lead.Metadata[f.Key]
		if !ok || v == nil {
			return Value{}
		}
		return Value{Present: true, Raw: v}
	}
	return Value{}
}

// stringValue keeps "" as the raw value of a non-present field so it
// still compares as "" and as zero.
func stringValue(s string) Value {
	if s == "" {
		return Value{Raw: ""}
	}
	return Value{Present: true, Raw: s}
}

// Blank reports a field that is set to the empty string.
func (v Value) Blank() bool {
	s, ok := v.Raw.(string)
	return !v.Present && ok && s == ""
}

// String renders the value the way it is compared by equals and contains.
func (v Value) String() string {
	if !v.Present {
		return ""
	}
	return stringify(v.Raw)
}

func stringify(raw any) string {
	switch x := raw.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item != nil {
				parts[i] = stringify(item)
			}
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Number coerces the value for greater_than and less_than.
// Anything that is not numeric yields NaN, and NaN never compares true.
func (v Value) Number() float64 {
	if v.Blank() {
		return 0
	}
	if !v.Present {
		return math.NaN()
	}

	switch x := v.Raw.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint64:
		return float64(x)
	case float64:
		return x
	case float32:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		return parseNumber(x.String())
	case string:
		return parseNumber(x)
	case time.Time:
		return float64(x.UnixMilli())
	default:
		return math.NaN()
	}
}

// parseNumber follows numeric string coercion: surrounding whitespace is
// ignored, an empty string is zero, hex integers and signed Infinity are
// accepted, and anything else that is not a plain decimal is NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		base := map[byte]int{'x': 16, 'o': 8, 'b': 2}[lower[1]]
		n, err := strconv.ParseUint(lower[2:], base, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}

	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c < '0' || c > '9') && c != '.' && c != 'e' && c != '+' && c != '-' {
			return math.NaN()
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
