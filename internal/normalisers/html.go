package normalisers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// HTMLNormaliser extracts readable text from HTML documents.
type HTMLNormaliser struct{}

const htmlBlockSelector = "p, div, section, article, li, tr, br, h1, h2, h3, h4, h5, h6, pre, blockquote"

func (n *HTMLNormaliser) Normalise(content []byte, mimeType string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrMalformedDocument, err)
	}

	doc.Find("script, style, noscript, template, head").Remove()

	// Keep block structure so the chunker can find paragraph boundaries
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(doc.Text())

	return normaliseLineEndings(b.String()), nil
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50 // Format-specific
}
