// Package chromem is a CorpusIndex on the embedded chromem-go vector
// database, in memory or persisted to a directory.
//
// Each owner gets two collections: one holding chunk vectors and one
// holding a generation record per document. A chunk is searchable only
// when its generation matches the document's record. Insert writes the
// new generation's chunks first, then swaps the record (a single document
// write), then deletes the previous generation. Readers resolve
// generations under a per-owner read lock that the swap and every chunk
// deletion take exclusively.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/philippgille/chromem-go"
)

var _ driven.CorpusIndex = (*Index)(nil)

const (
	metaDocumentID   = "document_id"
	metaDocumentName = "document_name"
	metaChunkID      = "chunk_id"
	metaSequence     = "sequence"
	metaStart        = "start_offset"
	metaEnd          = "end_offset"
	metaGeneration   = "generation"
	metaChunks       = "chunks"
)

// Index implements driven.CorpusIndex on chromem-go
type Index struct {
	db *chromem.DB

	mu     sync.Mutex
	owners map[string]*ownerState
}

type ownerState struct {
	write  sync.Mutex   // serialises inserts and deletes of one owner
	flip   sync.RWMutex // held exclusively while a generation swaps or chunks go
	hidden atomic.Int64 // chunks written but not yet (or no longer) searchable
	gens   sync.Map     // document ID -> generation record
}

type generation struct {
	id     string
	chunks int
}

// New opens an index. An empty path keeps everything in memory.
func New(path string, compress bool) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem at %s: %w", path, err)
		}
	}
	return &Index{db: db, owners: make(map[string]*ownerState)}, nil
}

func (x *Index) owner(ownerID string) *ownerState {
	x.mu.Lock()
	defer x.mu.Unlock()
	s, ok := x.owners[ownerID]
	if !ok {
		s = &ownerState{}
		x.owners[ownerID] = s
	}
	return s
}

func chunkCollection(ownerID string) string      { return "sercha-chunks-" + ownerID }
func generationCollection(ownerID string) string { return "sercha-generations-" + ownerID }

// noEmbedding is handed to chromem so it never tries to embed text itself
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chunks must be embedded before indexing")
}

// Insert writes the chunk set under a fresh generation and makes it
// searchable in one swap
func (x *Index) Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error {
	documentID, _, err := index.ValidateChunks(ownerID, chunks)
	if err != nil {
		return err
	}

	state := x.owner(ownerID)
	state.write.Lock()
	defer state.write.Unlock()

	col, err := x.db.GetOrCreateCollection(chunkCollection(ownerID), nil, noEmbedding)
	if err != nil {
		return index.Failure("open collection", err)
	}
	gens, err := x.db.GetOrCreateCollection(generationCollection(ownerID), nil, noEmbedding)
	if err != nil {
		return index.Failure("open collection", err)
	}

	gen := domain.GenerateID()
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        documentID + "/" + gen + "/" + strconv.Itoa(c.Sequence),
			Content:   c.Content,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				metaDocumentID:   documentID,
				metaDocumentName: c.DocumentName,
				metaChunkID:      c.ID,
				metaSequence:     strconv.Itoa(c.Sequence),
				metaStart:        strconv.Itoa(c.StartOffset),
				metaEnd:          strconv.Itoa(c.EndOffset),
				metaGeneration:   gen,
			},
		}
	}

	state.hidden.Add(int64(len(docs)))
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		x.dropGeneration(state, col, documentID, gen)
		state.hidden.Add(-int64(len(docs)))
		return index.Failure("add chunks", err)
	}

	previous, hadPrevious := x.lookup(ctx, state, gens, documentID)

	record := chromem.Document{
		ID:        documentID,
		Content:   documentID,
		Embedding: []float32{1},
		Metadata:  map[string]string{metaGeneration: gen, metaChunks: strconv.Itoa(len(docs))},
	}
	state.flip.Lock()
	err = gens.AddDocument(ctx, record)
	if err == nil {
		state.gens.Store(documentID, generation{id: gen, chunks: len(docs)})
		state.hidden.Add(-int64(len(docs)))
		if hadPrevious {
			state.hidden.Add(int64(previous.chunks))
		}
	}
	state.flip.Unlock()

	if err != nil {
		x.dropGeneration(state, col, documentID, gen)
		state.hidden.Add(-int64(len(docs)))
		return index.Failure("publish generation", err)
	}

	if hadPrevious {
		x.dropGeneration(state, col, documentID, previous.id)
		state.hidden.Add(-int64(previous.chunks))
	}
	return nil
}

// dropGeneration removes one generation's chunks. It holds flip so that
// no search sees the collection shrink between its count and its query.
// Errors leave orphans that are never searchable, so they are ignored.
func (x *Index) dropGeneration(state *ownerState, col *chromem.Collection, documentID, gen string) {
	state.flip.Lock()
	defer state.flip.Unlock()

	_ = col.Delete(context.Background(), map[string]string{
		metaDocumentID: documentID,
		metaGeneration: gen,
	}, nil)
}

// lookup returns the document's live generation, reading through to the
// generations collection on a cache miss (after a restart, for instance)
func (x *Index) lookup(ctx context.Context, state *ownerState, gens *chromem.Collection, documentID string) (generation, bool) {
	if v, ok := state.gens.Load(documentID); ok {
		g := v.(generation)
		return g, g.id != ""
	}
	if gens == nil {
		return generation{}, false
	}
	doc, err := gens.GetByID(ctx, documentID)
	if err != nil {
		state.gens.Store(documentID, generation{})
		return generation{}, false
	}
	n, _ := strconv.Atoi(doc.Metadata[metaChunks])
	g := generation{id: doc.Metadata[metaGeneration], chunks: n}
	state.gens.Store(documentID, g)
	return g, g.id != ""
}

// Search queries the owner's chunk collection and keeps chunks of live
// generations only
func (x *Index) Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	if err := index.ValidateQuery(ownerID, vector, k); err != nil {
		return nil, err
	}

	col := x.db.GetCollection(chunkCollection(ownerID), noEmbedding)
	if col == nil {
		return []*domain.ScoredChunk{}, nil
	}
	gens := x.db.GetCollection(generationCollection(ownerID), noEmbedding)
	state := x.owner(ownerID)

	state.flip.RLock()
	defer state.flip.RUnlock()

	// chromem scores every document regardless of nResults, so asking for
	// all of them costs only the result copy and leaves room to filter.
	n := col.Count()
	if n == 0 {
		return []*domain.ScoredChunk{}, nil
	}
	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, index.Failure("query", err)
	}

	live := make(map[string]string)
	scored := make([]*domain.ScoredChunk, 0, k)
	for _, r := range results {
		documentID := r.Metadata[metaDocumentID]
		gen, seen := live[documentID]
		if !seen {
			g, _ := x.lookup(ctx, state, gens, documentID)
			gen = g.id
			live[documentID] = gen
		}
		if gen == "" || r.Metadata[metaGeneration] != gen {
			continue
		}
		scored = append(scored, &domain.ScoredChunk{
			Chunk: chunkFromResult(ownerID, r),
			Score: domain.SimilarityToScore(float64(r.Similarity)),
		})
	}

	domain.SortScoredChunks(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func chunkFromResult(ownerID string, r chromem.Result) *domain.Chunk {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(r.Metadata[key])
		return n
	}
	return &domain.Chunk{
		ID:           r.Metadata[metaChunkID],
		DocumentID:   r.Metadata[metaDocumentID],
		DocumentName: r.Metadata[metaDocumentName],
		OwnerID:      ownerID,
		Sequence:     atoi(metaSequence),
		Content:      r.Content,
		StartOffset:  atoi(metaStart),
		EndOffset:    atoi(metaEnd),
	}
}

// DeleteDocument retires the generation record first, then the chunks
func (x *Index) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	col := x.db.GetCollection(chunkCollection(ownerID), noEmbedding)
	gens := x.db.GetCollection(generationCollection(ownerID), noEmbedding)
	if col == nil || gens == nil {
		return nil
	}

	state := x.owner(ownerID)
	state.write.Lock()
	defer state.write.Unlock()

	previous, ok := x.lookup(ctx, state, gens, documentID)
	if !ok {
		return nil
	}

	// Retire the record and the chunks in one swap
	state.flip.Lock()
	defer state.flip.Unlock()

	if err := gens.Delete(ctx, nil, nil, documentID); err != nil {
		return index.Failure("delete generation", err)
	}
	state.gens.Store(documentID, generation{})
	state.hidden.Add(int64(previous.chunks))

	if err := col.Delete(ctx, map[string]string{metaDocumentID: documentID}, nil); err != nil {
		// The chunks left behind stay hidden orphans
		return index.Failure("delete chunks", err)
	}
	state.hidden.Add(-int64(previous.chunks))
	return nil
}

// Count returns the owner's searchable chunks. Orphans left by a crash
// during Insert are counted until the document is inserted again.
func (x *Index) Count(ctx context.Context, ownerID string) (int, error) {
	col := x.db.GetCollection(chunkCollection(ownerID), noEmbedding)
	if col == nil {
		return 0, nil
	}
	n := col.Count() - int(x.owner(ownerID).hidden.Load())
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Ping always succeeds for the embedded database
func (x *Index) Ping(ctx context.Context) error { return nil }

// Close is a no-op; persistent databases write through on every change
func (x *Index) Close() error { return nil }
