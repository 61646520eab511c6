package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/shadow-ui/internal/query"
)

func TestParseToolArguments(t *testing.T) {
	t.Parallel()

	args, errResult := parseToolArguments(mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"file": "a.py"}},
	})
	require.Nil(t, errResult)
	assert.Equal(t, "a.py", args["file"])

	_, errResult = parseToolArguments(mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: []string{"a.py"}},
	})
	require.NotNil(t, errResult)
	assert.True(t, errResult.IsError)
}

func TestQueryError(t *testing.T) {
	t.Parallel()

	result, err := queryError(fmt.Errorf("file %q: %w", "a.py", query.ErrNotFound))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	boom := errors.New("database is locked")
	result, err = queryError(boom)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}
