package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.Embedder = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultOpenAIEmbedModel    = "text-embedding-3-small"
	fallbackOpenAIDimensions   = 1536
	openAIMaxInputsPerRequest  = 256
	openAIMaxErrorBodyBytes    = 64 << 10
	openAIEmbeddingHTTPTimeout = time.Minute
)

var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding calls an OpenAI-compatible POST /embeddings endpoint.
// Every transport or API failure wraps domain.ErrEmbeddingUnavailable.
type OpenAIEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	// sent only when the caller asked for a reduced size
	requestDims int
	batchSize   int
	client      *http.Client
}

// NewOpenAIEmbedding uses the model's native size when dimensions <= 0.
// An explicit size is passed to the API, which only text-embedding-3
// models honour.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = defaultOpenAIEmbedModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	e := &OpenAIEmbedding{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		dimensions: dimensions,
		batchSize:  openAIMaxInputsPerRequest,
		client:     &http.Client{Timeout: openAIEmbeddingHTTPTimeout},
	}
	switch {
	case dimensions > 0 && strings.HasPrefix(model, "text-embedding-3"):
		e.requestDims = dimensions
	case dimensions <= 0:
		e.dimensions = fallbackOpenAIDimensions
		if native, ok := openAIModelDimensions[model]; ok {
			e.dimensions = native
		}
	}
	return e, nil
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// EmbedBatch splits texts into requests of at most batchSize inputs and
// returns vectors in input order.
func (e *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *OpenAIEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck spends one tiny embedding call
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.Embed(ctx, "ping")
	return err
}

func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *OpenAIEmbedding) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
		Dimensions:     e.requestDims,
	})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, openAIStatusError(resp)
	}

	var body embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrEmbeddingUnavailable, err)
	}

	// the API does not promise to answer in input order
	vectors := make([][]float32, len(texts))
	for _, d := range body.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: no vector for input %d", domain.ErrEmbeddingUnavailable, i)
		}
	}
	return vectors, nil
}

func openAIStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, openAIMaxErrorBodyBytes))
	var body openAIErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != nil {
		return fmt.Errorf("%w: status %d: %s (%s)",
			domain.ErrEmbeddingUnavailable, resp.StatusCode, body.Error.Message, body.Error.Code)
	}
	return fmt.Errorf("%w: status %d", domain.ErrEmbeddingUnavailable, resp.StatusCode)
}
