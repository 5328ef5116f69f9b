package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrEncoding = errors.New("encoding error")

const (
	nullFlag    = 1
	textLenSize = 2
)

func NewLayout(columns []Column) *Layout {
	l := &Layout{Columns: columns, offsets: make([]int, len(columns))}

	for i, col := range columns {
		l.offsets[i] = l.length
		l.length += nullFlag + fieldWidth(col)
	}

	return l
}

func (l *Layout) Length() int {
	return l.length
}

func fieldWidth(col Column) int {
	switch col.Type {
	case TEXT_TYPE, DECIMAL_TYPE:
		return textLenSize + col.Width
	}
	return col.Width
}

func (l *Layout) Encode(values []any) ([]byte, error) {
	if len(values) != len(l.Columns) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrEncoding, len(l.Columns), len(values))
	}

	buf := make([]byte, l.length)
	for i, v := range values {
		if err := l.encodeField(buf[l.offsets[i]:], l.Columns[i], v); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

func (l *Layout) Decode(data []byte) ([]any, error) {
	if len(data) != l.length {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrEncoding, l.length, len(data))
	}

	values := make([]any, len(l.Columns))
	for i, col := range l.Columns {
		v, err := decodeField(data[l.offsets[i]:], col)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return values, nil
}

// EncodeKey concatenates the encoded fields at ordinals. Equal values always
// produce equal keys, which is what the indexes compare.
func (l *Layout) EncodeKey(ordinals []int, values []any) ([]byte, error) {
	if len(ordinals) != len(values) {
		return nil, fmt.Errorf("%w: %d key columns, %d values", ErrEncoding, len(ordinals), len(values))
	}

	var key []byte
	for i, ord := range ordinals {
		col := l.Columns[ord]
		field := make([]byte, nullFlag+fieldWidth(col))
		if err := l.encodeField(field, col, values[i]); err != nil {
			return nil, err
		}
		key = append(key, field...)
	}

	return key, nil
}

func (l *Layout) encodeField(dst []byte, col Column, v any) error {
	if v == nil {
		dst[0] = 1
		return nil
	}
	dst[0] = 0
	field := dst[nullFlag:]

	switch col.Type {
	case INT_TYPE:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("%w: column %s expects int64, got %T", ErrEncoding, col.Name, v)
		}
		binary.LittleEndian.PutUint64(field, uint64(n))
	case TEXT_TYPE:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: column %s expects string, got %T", ErrEncoding, col.Name, v)
		}
		return putText(field, col, s)
	case DECIMAL_TYPE:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("%w: column %s expects decimal, got %T", ErrEncoding, col.Name, v)
		}
		return putText(field, col, d.String())
	default:
		return fmt.Errorf("%w: column %s has invalid type", ErrEncoding, col.Name)
	}

	return nil
}

func putText(field []byte, col Column, s string) error {
	if len(s) > col.Width {
		return fmt.Errorf("%w: column %s holds at most %d bytes, got %d", ErrEncoding, col.Name, col.Width, len(s))
	}

	binary.LittleEndian.PutUint16(field, uint16(len(s)))
	n := copy(field[textLenSize:], s)
	clear(field[textLenSize+n : textLenSize+col.Width])
	return nil
}

func decodeField(src []byte, col Column) (any, error) {
	if src[0] == 1 {
		return nil, nil
	}
	field := src[nullFlag:]

	switch col.Type {
	case INT_TYPE:
		return int64(binary.LittleEndian.Uint64(field)), nil
	case TEXT_TYPE, DECIMAL_TYPE:
		n := int(binary.LittleEndian.Uint16(field))
		if n > col.Width {
			return nil, fmt.Errorf("%w: column %s has corrupt length %d", ErrEncoding, col.Name, n)
		}
		s := string(field[textLenSize : textLenSize+n])
		if col.Type == TEXT_TYPE {
			return s, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrEncoding, col.Name, err)
		}
		return d, nil
	}

	return nil, fmt.Errorf("%w: column %s has invalid type", ErrEncoding, col.Name)
}

// Equal compares two values of the same column. NULL equals nothing, not
// even NULL.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}

	if da, ok := a.(decimal.Decimal); ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}

	return a == b
}

// Layout is the fixed-length byte layout of a record: every column takes a
// one byte null flag followed by its width.
type Layout struct {
	Columns []Column
	offsets []int
	length  int
}
