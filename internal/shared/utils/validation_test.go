package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateServiceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		required bool
		wantErr  bool
	}{
		{"simple", "gpt2", true, false},
		{"hub id", "meta-llama/Llama-3.1-8B", true, false},
		{"ollama tag", "llama3:8b", true, false},
		{"empty optional", "", false, false},
		{"empty required", "", true, true},
		{"spaces", "my model", true, true},
		{"null byte", "gpt\x002", true, true},
		{"too long", strings.Repeat("a", MaxServiceNameLength+1), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceName(tt.input, tt.required)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	assert.NoError(t, ValidatePrompt(""))
	assert.NoError(t, ValidatePrompt("Hello, world"))
	assert.Error(t, ValidatePrompt(strings.Repeat("x", MaxPromptLength+1)))
	assert.Error(t, ValidatePrompt("bad\xff"))
	assert.Error(t, ValidatePrompt("nul\x00"))
}

func TestValidateStopSequences(t *testing.T) {
	assert.NoError(t, ValidateStopSequences(nil))
	assert.NoError(t, ValidateStopSequences([]string{"\n", "END"}))
	assert.Error(t, ValidateStopSequences([]string{""}))
	assert.Error(t, ValidateStopSequences(make([]string, MaxStopSequences+1)))
}

func TestValidateJSONDepth(t *testing.T) {
	shallow := map[string]interface{}{"a": 1}
	assert.NoError(t, ValidateJSONDepth(shallow, 2))

	deep := map[string]interface{}{"a": map[string]interface{}{"b": []interface{}{map[string]interface{}{"c": 1}}}}
	assert.NoError(t, ValidateJSONDepth(deep, 4))
	assert.Error(t, ValidateJSONDepth(deep, 2))
}
