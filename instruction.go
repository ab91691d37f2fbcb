package voiceagent

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ReadInstructions reads a UTF-8 prompt file in full. The file is read on
// every call; callers that want a process-wide prompt keep the result
// themselves.
func ReadInstructions(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read instructions: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read instructions: %s is not valid UTF-8", path)
	}
	return string(data), nil
}

func joinInstructions(instructions []string) string {
	prompts := make([]string, 0, len(instructions))
	for _, instruction := range instructions {
		if instruction == "" {
			continue
		}
		prompts = append(prompts, instruction)
	}

	return strings.Join(prompts, "\n")
}
