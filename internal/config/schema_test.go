package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOverrideJSONAccepts(t *testing.T) {
	raw := []byte(`{"ranking": {"weights": {"commits": 0.5}}, "ignore_paths": ["vendor/**"]}`)

	assert.NoError(t, ValidateOverrideJSON(raw))
}

func TestValidateOverrideJSONRejectsNegativeWeight(t *testing.T) {
	raw := []byte(`{"ranking": {"weights": {"commits": -1}}}`)

	assert.Error(t, ValidateOverrideJSON(raw))
}

func TestValidateOverrideJSONRejectsWrongType(t *testing.T) {
	raw := []byte(`{"ignore_paths": "not-an-array"}`)

	assert.Error(t, ValidateOverrideJSON(raw))
}
