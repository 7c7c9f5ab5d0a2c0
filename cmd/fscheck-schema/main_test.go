package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	data, err := generate()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "fscheck Configuration", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has top-level properties")
	for _, section := range []string{"logging", "backend", "harness", "report", "metrics"} {
		assert.Contains(t, properties, section)
	}
}
