package server_test

import (
	"errors"
	"testing"

	"lintang/mapmatchx/pkg/server"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorf(t *testing.T) {
	orig := errors.New("boom")
	err := server.WrapErrorf(orig, server.ErrInvalidInput, "observation %d", 3)

	assert.Equal(t, "observation 3: boom", err.Error())
	assert.ErrorIs(t, err, orig)
	assert.Equal(t, server.ErrInvalidInput, server.CodeOf(err))
	assert.Nil(t, server.CodeOf(orig))

	var se *server.Error
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "observation 3", se.Message())
}
