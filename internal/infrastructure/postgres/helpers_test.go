package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitOffset(t *testing.T) {
	args := []any{"p1"}
	assert.Equal(t, " LIMIT $2 OFFSET $3", limitOffset(&args, 10, 20))
	assert.Equal(t, []any{"p1", 10, 20}, args)

	args = nil
	assert.Equal(t, "", limitOffset(&args, 0, 0))
	assert.Empty(t, args)

	args = nil
	assert.Equal(t, " OFFSET $1", limitOffset(&args, 0, 5))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	v := nullString("OC-1")
	if assert.NotNil(t, v) {
		assert.Equal(t, "OC-1", derefString(v))
	}
	assert.Equal(t, "", derefString(nil))
}
