package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "DittoDrive Configuration", doc.Title)
	for _, section := range []string{"logging", "server", "metadata", "blob", "identity", "uploads", "shares"} {
		assert.Contains(t, doc.Properties, section)
	}
}
