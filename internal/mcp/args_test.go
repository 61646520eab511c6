package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindArguments(t *testing.T) {
	t.Parallel()

	t.Run("native types", func(t *testing.T) {
		var args nodesArgs
		require.NoError(t, bindArguments(map[string]interface{}{
			"type":  "Button",
			"limit": float64(20),
		}, &args))
		assert.Equal(t, "Button", args.Type)
		assert.Equal(t, 20, args.Limit)
	})

	t.Run("string values are coerced", func(t *testing.T) {
		var args fileArgs
		require.NoError(t, bindArguments(map[string]interface{}{
			"file":          "app/main.py",
			"include_trees": "true",
		}, &args))
		assert.True(t, args.IncludeTrees)

		var nodes nodesArgs
		require.NoError(t, bindArguments(map[string]interface{}{"limit": "15"}, &nodes))
		assert.Equal(t, 15, nodes.Limit)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		var args selectorsArgs
		require.NoError(t, bindArguments(map[string]interface{}{"kind": "id", "extra": 1}, &args))
		assert.Equal(t, "id", args.Kind)
	})

	t.Run("unconvertible value", func(t *testing.T) {
		var args nodesArgs
		err := bindArguments(map[string]interface{}{"limit": "many"}, &args)
		assert.ErrorContains(t, err, "invalid arguments")
	})
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want uint64
	}{
		{0, defaultLimit},
		{-3, defaultLimit},
		{1, 1},
		{120, 120},
		{maxLimit + 1, maxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.in), "limit %d", tt.in)
	}
}
