package normalisers

import (
	"fmt"
	"maps"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry picks a normaliser by MIME type. Normalisers are kept ordered by
// descending priority, ties in registration order, so the first match wins.
type Registry struct {
	mu      sync.RWMutex
	ordered []driven.Normaliser
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register inserts n after every normaliser of equal or higher priority.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := len(r.ordered)
	for i, existing := range r.ordered {
		if existing.Priority() < n.Priority() {
			at = i
			break
		}
	}
	r.ordered = slices.Insert(r.ordered, at, n)
}

// Get returns the preferred normaliser for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.ordered {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			return n
		}
	}
	return nil
}

func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser
	for _, n := range r.ordered {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			matches = append(matches, n)
		}
	}
	return matches
}

// List returns the distinct declared MIME types, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, n := range r.ordered {
		for _, t := range n.SupportedTypes() {
			seen[t] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Extract runs the best normaliser for mimeType over content.
func (r *Registry) Extract(content []byte, mimeType string) (string, error) {
	n := r.Get(mimeType)
	if n == nil {
		return "", fmt.Errorf("%w: unsupported content type %q", domain.ErrMalformedDocument, mimeType)
	}
	text, err := n.Normalise(content, mimeType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no extractable text", domain.ErrMalformedDocument)
	}
	return text, nil
}

// matchesMIMEType reports whether mimeType is covered by supported, where
// "text/*" covers any text type and "*/*" covers everything.
func matchesMIMEType(supported []string, mimeType string) bool {
	mimeType = baseMIMEType(mimeType)
	major, _, _ := strings.Cut(mimeType, "/")

	return slices.ContainsFunc(supported, func(s string) bool {
		s = strings.ToLower(strings.TrimSpace(s))
		switch {
		case s == mimeType, s == "*/*":
			return true
		case strings.HasSuffix(s, "/*"):
			return strings.TrimSuffix(s, "/*") == major
		}
		return false
	})
}

// baseMIMEType lowercases and strips parameters such as charset.
func baseMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".htm":      "text/html",
	".html":     "text/html",
	".pdf":      "application/pdf",
}

// DetectMIMEType picks a MIME type from the filename extension, falling back
// to content sniffing.
func DetectMIMEType(filename string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return baseMIMEType(t)
	}
	return baseMIMEType(http.DetectContentType(content))
}

// DefaultRegistry holds the plain text, markdown, HTML and PDF normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, n := range []driven.Normaliser{
		&PlaintextNormaliser{},
		&MarkdownNormaliser{},
		&HTMLNormaliser{},
		&PDFNormaliser{},
	} {
		r.Register(n)
	}
	return r
}
