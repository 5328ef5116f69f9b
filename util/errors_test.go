package util

import (
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("messages accumulate context", func(t *testing.T) {
		err := NewRecordManagerError(io.ErrUnexpectedEOF, "insert into %s", "emp")
		err = NewCommandExecutionError(err)

		assert.Equal(t, "RME: insert into emp: unexpected EOF", err.Error())
	})

	t.Run("kinds are distinguishable through wrapping", func(t *testing.T) {
		err := pkgerrors.Wrap(NewSemanticError("unknown column %q", "age"), "insert")

		var semErr *SemanticError
		assert.True(t, errors.As(err, &semErr))

		var rmErr *RecordManagerError
		assert.False(t, errors.As(err, &rmErr))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		err := NewPageStoreInitError(io.EOF, "reading sentinel")
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestConvert(t *testing.T) {
	type catalog struct {
		Names []string
		Next  int64
	}

	data, err := ToByteSlice(catalog{Names: []string{"emp"}, Next: 3})
	assert.NoError(t, err)

	res, err := ToStruct[catalog](data)
	assert.NoError(t, err)
	assert.Equal(t, []string{"emp"}, res.Names)
	assert.Equal(t, int64(3), res.Next)

	_, err = ToStruct[catalog]([]byte{0xc1})
	assert.Error(t, err)
}
