package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_MemoryWithoutRedis(t *testing.T) {
	t.Setenv("REDIS_HOST", "")

	store, svc, err := Open(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.IsType(t, &MemoryCache{}, store)
}
