package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits
const (
	MaxPromptLength      = 64 * 1024
	MaxServiceNameLength = 128
	MaxSettingsDepth     = 8
	MaxStopSequences     = 16
)

// ServiceNamePattern allows alphanumerics plus dots, hyphens, underscores, colons and slashes
// so model identifiers like "meta-llama/Llama-3.1-8B" work as names.
var ServiceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._:/-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateServiceName validates a service name
func ValidateServiceName(name string, required bool) error {
	if err := ValidateString(name, "service", 1, MaxServiceNameLength, required); err != nil {
		return err
	}

	if name != "" && !ServiceNamePattern.MatchString(name) {
		return fmt.Errorf("service contains invalid characters (only alphanumeric, dots, colons, slashes, hyphens, and underscores allowed)")
	}

	return nil
}

// ValidatePrompt validates a prompt. Empty prompts are allowed; some backends accept them.
func ValidatePrompt(prompt string) error {
	if !utf8.ValidString(prompt) {
		return fmt.Errorf("prompt is not valid UTF-8")
	}
	return ValidateString(prompt, "prompt", 0, MaxPromptLength, false)
}

// ValidateStopSequences bounds the number and size of stop sequences
func ValidateStopSequences(stops []string) error {
	if len(stops) > MaxStopSequences {
		return fmt.Errorf("too many stop sequences (maximum %d)", MaxStopSequences)
	}
	for i, s := range stops {
		if err := ValidateString(s, fmt.Sprintf("stop_sequences[%d]", i), 1, 256, true); err != nil {
			return err
		}
	}
	return nil
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}
