package normalisers

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// PlaintextNormaliser handles plain text content.
// It is also the fallback for unknown types that decode as text.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content []byte, mimeType string) (string, error) {
	text, err := decodeText(content)
	if err != nil {
		return "", err
	}
	return normaliseLineEndings(text), nil
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"} // Fallback for any type
}

func (n *PlaintextNormaliser) Priority() int {
	return 1 // Lowest priority - fallback
}

// MarkdownNormaliser handles Markdown content, keeping the prose and
// dropping markup that carries no meaning for retrieval.
type MarkdownNormaliser struct{}

var (
	mdImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	mdFence    = regexp.MustCompile("(?m)^```.*$")
)

func (n *MarkdownNormaliser) Normalise(content []byte, mimeType string) (string, error) {
	text, err := decodeText(content)
	if err != nil {
		return "", err
	}
	text = normaliseLineEndings(text)
	text = mdFence.ReplaceAllString(text, "")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdEmphasis.ReplaceAllString(text, "$2")
	return strings.TrimSpace(text), nil
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50 // Format-specific
}

// decodeText rejects binary payloads so that an unreadable upload fails the
// document instead of indexing garbage.
func decodeText(content []byte) (string, error) {
	if bytes.IndexByte(content, 0) != -1 {
		return "", fmt.Errorf("%w: binary content", domain.ErrMalformedDocument)
	}
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrMalformedDocument)
	}
	return string(content), nil
}

func normaliseLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
