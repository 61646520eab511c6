package mcp

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Tool arguments. Clients may send every value as a string ("10", "true"),
// so binding is weakly typed.

type nodesArgs struct {
	File         string `json:"file"`
	Type         string `json:"type"`
	IdentityKind string `json:"identity_kind"`
	Identity     string `json:"identity"`
	Limit        int    `json:"limit"`
}

type edgeCasesArgs struct {
	Bucket string `json:"bucket"`
	File   string `json:"file"`
	Limit  int    `json:"limit"`
}

type selectorsArgs struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type fileArgs struct {
	File         string `json:"file"`
	IncludeTrees bool   `json:"include_trees"`
}

// bindArguments decodes a tool arguments map into target using json tags.
func bindArguments(args map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// clampLimit maps a requested limit to 1..maxLimit, defaulting when unset.
func clampLimit(limit int) uint64 {
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return uint64(limit)
}
