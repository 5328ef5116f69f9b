package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Type int

const (
	INVALID_TYPE Type = iota
	INT_TYPE
	TEXT_TYPE
	DECIMAL_TYPE
)

const (
	INT_WIDTH          = 8
	DEFAULT_TEXT_WIDTH = 32
	DECIMAL_WIDTH      = 40
	MAX_TEXT_WIDTH     = 1024

	NULL_LITERAL = "NULL"
)

type Column struct {
	Name  string
	Type  Type
	Width int
}

// ParseColumn parses "name:type", where type is int, decimal, text or text(n).
func ParseColumn(spec string) (Column, error) {
	name, typ, ok := strings.Cut(spec, ":")
	if !ok || name == "" {
		return Column{}, fmt.Errorf("column %q: expected name:type", spec)
	}

	t, width, err := ParseType(typ)
	if err != nil {
		return Column{}, fmt.Errorf("column %q: %v", name, err)
	}

	return Column{Name: name, Type: t, Width: width}, nil
}

func ParseType(s string) (Type, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case s == "int":
		return INT_TYPE, INT_WIDTH, nil
	case s == "decimal":
		return DECIMAL_TYPE, DECIMAL_WIDTH, nil
	case s == "text":
		return TEXT_TYPE, DEFAULT_TEXT_WIDTH, nil
	case strings.HasPrefix(s, "text(") && strings.HasSuffix(s, ")"):
		width, err := strconv.Atoi(s[len("text(") : len(s)-1])
		if err != nil || width <= 0 || width > MAX_TEXT_WIDTH {
			return INVALID_TYPE, 0, fmt.Errorf("invalid text width in %q", s)
		}
		return TEXT_TYPE, width, nil
	}

	return INVALID_TYPE, 0, fmt.Errorf("unknown type %q", s)
}

func (t Type) String() string {
	switch t {
	case INT_TYPE:
		return "int"
	case TEXT_TYPE:
		return "text"
	case DECIMAL_TYPE:
		return "decimal"
	}
	return "invalid"
}

// Coerce converts a literal into the column's value representation:
// int64, string or decimal.Decimal. NULL becomes nil.
func Coerce(col Column, literal string) (any, error) {
	if literal == NULL_LITERAL {
		return nil, nil
	}

	switch col.Type {
	case INT_TYPE:
		v, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s expects int, got %q", ErrEncoding, col.Name, literal)
		}
		return v, nil
	case DECIMAL_TYPE:
		v, err := decimal.NewFromString(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("%w: column %s expects decimal, got %q", ErrEncoding, col.Name, literal)
		}
		return v, nil
	case TEXT_TYPE:
		return literal, nil
	}

	return nil, fmt.Errorf("%w: column %s has invalid type", ErrEncoding, col.Name)
}

// Format renders a value the way Coerce accepts it back.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return NULL_LITERAL
	case int64:
		return strconv.FormatInt(val, 10)
	case decimal.Decimal:
		return val.String()
	case string:
		return val
	}
	return fmt.Sprint(v)
}
