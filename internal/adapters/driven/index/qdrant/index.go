// Package qdrant is a CorpusIndex on a Qdrant server.
//
// Chunks of all owners share one collection and are isolated by an
// owner_id payload filter. Every Insert writes its chunks under a new
// generation and then publishes that generation in a companion collection
// holding one record per document. Search keeps only hits whose
// generation is the published one, so a reader never mixes two chunk sets
// of the same document and never sees a set that is still being written.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var _ driven.CorpusIndex = (*Index)(nil)

const (
	fieldOwner      = "owner_id"
	fieldDocument   = "document_id"
	fieldName       = "document_name"
	fieldChunk      = "chunk_id"
	fieldSequence   = "sequence"
	fieldContent    = "content"
	fieldStart      = "start_offset"
	fieldEnd        = "end_offset"
	fieldGeneration = "generation"
	fieldChunks     = "chunks"

	// maxFetchRounds bounds how often Search widens its window when stale
	// generations crowd out live hits
	maxFetchRounds = 4
	scrollPage     = 256
)

// Config configures the Qdrant index
type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
	Dimensions int
	Logger     *slog.Logger
}

// Index implements driven.CorpusIndex on Qdrant
type Index struct {
	client      *qdrant.Client
	chunks      string
	generations string
	logger      *slog.Logger
	locks       *ownerLocks
}

// New connects and creates both collections if they are missing
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Collection == "" {
		cfg.Collection = "sercha_chunks"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}

	x := &Index{
		client:      client,
		chunks:      cfg.Collection,
		generations: cfg.Collection + "_generations",
		logger:      cfg.Logger.With("component", "qdrant"),
		locks:       newOwnerLocks(),
	}
	if err := x.ensureCollection(ctx, x.chunks, uint64(cfg.Dimensions), fieldOwner, fieldDocument, fieldGeneration); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := x.ensureCollection(ctx, x.generations, 1, fieldOwner); err != nil {
		_ = client.Close()
		return nil, err
	}
	return x, nil
}

func (x *Index) ensureCollection(ctx context.Context, name string, size uint64, keywordFields ...string) error {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	for _, field := range keywordFields {
		_, err := x.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("qdrant: index %s.%s: %w", name, field, err)
		}
	}
	x.logger.Info("collection created", "collection", name, "dimensions", size)
	return nil
}

// recordID is the stable point ID of a document's generation record
func recordID(ownerID, documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("sercha:"+ownerID+"/"+documentID)).String()
}

// Insert writes the chunk set under a new generation, publishes it, then
// removes every other generation of the document
func (x *Index) Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error {
	documentID, _, err := index.ValidateChunks(ownerID, chunks)
	if err != nil {
		return err
	}

	unlock := x.locks.lock(ownerID)
	defer unlock()

	gen := domain.GenerateID()
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldOwner:      ownerID,
				fieldDocument:   documentID,
				fieldName:       c.DocumentName,
				fieldChunk:      c.ID,
				fieldSequence:   int64(c.Sequence),
				fieldContent:    c.Content,
				fieldStart:      int64(c.StartOffset),
				fieldEnd:        int64(c.EndOffset),
				fieldGeneration: gen,
			}),
		}
	}

	if _, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.chunks,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		x.deleteChunks(ctx, documentFilter(ownerID, documentID, gen, true))
		return index.Failure("upsert chunks", err)
	}

	if _, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.generations,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(recordID(ownerID, documentID)),
			Vectors: qdrant.NewVectors(1),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldOwner:      ownerID,
				fieldDocument:   documentID,
				fieldGeneration: gen,
				fieldChunks:     int64(len(chunks)),
			}),
		}},
	}); err != nil {
		x.deleteChunks(ctx, documentFilter(ownerID, documentID, gen, true))
		return index.Failure("publish generation", err)
	}

	x.deleteChunks(ctx, documentFilter(ownerID, documentID, gen, false))
	return nil
}

// documentFilter matches a document's chunks of generation gen, or of
// every other generation when match is false
func documentFilter(ownerID, documentID, gen string, match bool) *qdrant.Filter {
	f := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(fieldOwner, ownerID),
			qdrant.NewMatch(fieldDocument, documentID),
		},
	}
	if gen == "" {
		return f
	}
	if match {
		f.Must = append(f.Must, qdrant.NewMatch(fieldGeneration, gen))
	} else {
		f.MustNot = []*qdrant.Condition{qdrant.NewMatch(fieldGeneration, gen)}
	}
	return f
}

// deleteChunks is cleanup; stale chunks are filtered on read, so failures
// are only logged
func (x *Index) deleteChunks(ctx context.Context, filter *qdrant.Filter) {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.chunks,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		x.logger.Warn("failed to delete stale chunks", "error", err)
	}
}

// Search returns the owner's top k live chunks
func (x *Index) Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	if err := index.ValidateQuery(ownerID, vector, k); err != nil {
		return nil, err
	}

	filter := &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldOwner, ownerID)}}
	limit := uint64(k*2 + 8)

	for round := 0; ; round++ {
		points, err := x.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: x.chunks,
			Query:          qdrant.NewQuery(vector...),
			Filter:         filter,
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, index.Failure("query", err)
		}

		live, err := x.liveGenerations(ctx, ownerID, points)
		if err != nil {
			return nil, err
		}

		results := make([]*domain.ScoredChunk, 0, k)
		for _, p := range points {
			c := chunkFromPayload(ownerID, p.GetPayload())
			if gen := live[c.DocumentID]; gen == "" || gen != p.GetPayload()[fieldGeneration].GetStringValue() {
				continue
			}
			results = append(results, &domain.ScoredChunk{
				Chunk: c,
				Score: domain.SimilarityToScore(float64(p.GetScore())),
			})
		}

		// A short page means the owner has no more chunks to offer
		if len(results) >= k || uint64(len(points)) < limit || round == maxFetchRounds-1 {
			domain.SortScoredChunks(results)
			if len(results) > k {
				results = results[:k]
			}
			return results, nil
		}
		limit *= 4
	}
}

// liveGenerations fetches the published generation of every document
// referenced by points
func (x *Index) liveGenerations(ctx context.Context, ownerID string, points []*qdrant.ScoredPoint) (map[string]string, error) {
	live := make(map[string]string)
	var ids []*qdrant.PointId
	for _, p := range points {
		documentID := p.GetPayload()[fieldDocument].GetStringValue()
		if _, ok := live[documentID]; ok {
			continue
		}
		live[documentID] = ""
		ids = append(ids, qdrant.NewIDUUID(recordID(ownerID, documentID)))
	}
	if len(ids) == 0 {
		return live, nil
	}

	records, err := x.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: x.generations,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, index.Failure("load generations", err)
	}
	for _, r := range records {
		payload := r.GetPayload()
		if payload[fieldOwner].GetStringValue() != ownerID {
			continue
		}
		live[payload[fieldDocument].GetStringValue()] = payload[fieldGeneration].GetStringValue()
	}
	return live, nil
}

func chunkFromPayload(ownerID string, payload map[string]*qdrant.Value) *domain.Chunk {
	return &domain.Chunk{
		ID:           payload[fieldChunk].GetStringValue(),
		DocumentID:   payload[fieldDocument].GetStringValue(),
		DocumentName: payload[fieldName].GetStringValue(),
		OwnerID:      ownerID,
		Sequence:     int(payload[fieldSequence].GetIntegerValue()),
		Content:      payload[fieldContent].GetStringValue(),
		StartOffset:  int(payload[fieldStart].GetIntegerValue()),
		EndOffset:    int(payload[fieldEnd].GetIntegerValue()),
	}
}

// DeleteDocument unpublishes the document, then drops all its chunks
func (x *Index) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	unlock := x.locks.lock(ownerID)
	defer unlock()

	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.generations,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(recordID(ownerID, documentID))),
	})
	if err != nil {
		return index.Failure("delete generation", err)
	}

	_, err = x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.chunks,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(ownerID, documentID, "", true)),
	})
	if err != nil {
		return index.Failure("delete chunks", err)
	}
	return nil
}

// Count sums the chunk counts of the owner's published generations
func (x *Index) Count(ctx context.Context, ownerID string) (int, error) {
	var (
		total  int
		offset *qdrant.PointId
	)
	for {
		records, err := x.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: x.generations,
			Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldOwner, ownerID)}},
			Limit:          qdrant.PtrOf(uint32(scrollPage)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return 0, index.Failure("count", err)
		}

		// The offset point is included again on the next page
		start := 0
		if offset != nil && len(records) > 0 {
			start = 1
		}
		for _, r := range records[start:] {
			total += int(r.GetPayload()[fieldChunks].GetIntegerValue())
		}
		if len(records) < scrollPage {
			return total, nil
		}
		offset = records[len(records)-1].GetId()
	}
}

// Ping runs a health check
func (x *Index) Ping(ctx context.Context) error {
	if _, err := x.client.HealthCheck(ctx); err != nil {
		return index.Failure("health check", err)
	}
	return nil
}

// Close closes the gRPC connection
func (x *Index) Close() error {
	return x.client.Close()
}
