package bonderr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"direct", New(NoBonds, "no bonds"), NoBonds},
		{"wrapped", fmt.Errorf("generate: %w", New(ZipError, "zip")), ZipError},
		{"plain error", io.EOF, InternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestWrap_UnwrapsCause(t *testing.T) {
	err := Wrap(ParsingError, io.ErrUnexpectedEOF, "read %s", "book.xlsx")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "PARSING_ERROR: read book.xlsx: unexpected EOF", err.Error())
}

func TestAs_WithDetails(t *testing.T) {
	base := New(InvalidTag, "bad tags").WithDetails([]string{"RANDOM_TAG"})
	got := As(fmt.Errorf("outer: %w", base))
	require.NotNil(t, got)
	assert.Equal(t, []string{"RANDOM_TAG"}, got.Details)
	assert.Nil(t, As(errors.New("plain")))
}
