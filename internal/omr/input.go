package omr

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type inputPayload struct {
	ImagePath string `json:"image_path"`
}

// ReadInputPath returns the image path from the first argument, or else from
// a JSON object {"image_path": "..."} read from stdin.
func ReadInputPath(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if stdin == nil {
		return "", fmt.Errorf("%w: no input image path provided", ErrBadInput)
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("%w: reading stdin: %v", ErrBadInput, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", fmt.Errorf("%w: no input image path provided", ErrBadInput)
	}

	var payload inputPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	if strings.TrimSpace(payload.ImagePath) == "" {
		return "", fmt.Errorf("%w: image_path is missing", ErrBadInput)
	}
	return strings.TrimSpace(payload.ImagePath), nil
}
