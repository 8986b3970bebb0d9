package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)
	assert.NoError(t, store.Ping(context.Background()))

	_, err = Open(context.Background(), "sqlite", "")
	assert.ErrorContains(t, err, `unknown storage driver "sqlite"`)
}
