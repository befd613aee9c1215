package normalisers

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// PDFNormaliser extracts the text layer of PDF documents.
type PDFNormaliser struct{}

func (n *PDFNormaliser) Normalise(content []byte, mimeType string) (text string, err error) {
	// The PDF reader panics on some corrupt cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: unreadable pdf: %v", domain.ErrMalformedDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", domain.ErrMalformedDocument, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", domain.ErrMalformedDocument, err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", domain.ErrMalformedDocument, err)
	}

	return normaliseLineEndings(string(raw)), nil
}

func (n *PDFNormaliser) SupportedTypes() []string {
	return []string{"application/pdf"}
}

func (n *PDFNormaliser) Priority() int {
	return 60
}
