package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCR runs tesseract on imageFile and returns the recognized text with
// surrounding whitespace trimmed.
func OCR(ctx context.Context, imageFile, lang string) (string, error) {
	args := []string{imageFile, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	cmd := exec.CommandContext(ctx, "tesseract", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("media: tesseract error: %w\nStderr: %s", err, stderr.String())
	}
	return strings.TrimSpace(string(out)), nil
}
