package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	recallmem "github.com/recallmem/recallmem-go/pkg/core"
)

func TestMemoryErrorFormat(t *testing.T) {
	err := recallmem.NewMemoryError("SaveSession", errors.New("disk full"))
	assert.EqualError(t, err, "recallmem: SaveSession: disk full")
}

func TestMemoryErrorUnwrap(t *testing.T) {
	err := recallmem.NewMemoryError("add documents", recallmem.ErrDimensionMismatch)
	assert.ErrorIs(t, err, recallmem.ErrDimensionMismatch)

	var memErr *recallmem.MemoryError
	assert.ErrorAs(t, err, &memErr)
	assert.Equal(t, "add documents", memErr.Op)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, recallmem.NewMemoryError("noop", nil))
}
