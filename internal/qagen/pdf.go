package qagen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText pulls the plain text out of an uploaded PDF transcript.
func ExtractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// ContextFromText turns free text (e.g. an extracted PDF transcript) into a
// single context block: whitespace collapsed, truncated to maxLen runes.
func ContextFromText(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxContextLength
	}
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) > maxLen {
		collapsed = string(runes[:maxLen])
	}
	return collapsed
}
