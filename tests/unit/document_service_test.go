package unit

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/infra/docrepo"
	"github.com/dkoval/ragchat/internal/infra/embedder"
	"github.com/dkoval/ragchat/internal/infra/queue"
	"github.com/dkoval/ragchat/internal/infra/splitter"
	"github.com/dkoval/ragchat/internal/infra/storage"
	vmemory "github.com/dkoval/ragchat/internal/infra/vectorstore/memory"
	apperrors "github.com/dkoval/ragchat/pkg/errors"
)

// fixedExtractor stands in for the PDF reader so the pipeline can be
// exercised with plain text payloads.
type fixedExtractor struct {
	text  string
	pages int
	err   error
}

func (e *fixedExtractor) Extract([]byte) (string, int, error) {
	return e.text, e.pages, e.err
}

type pipeline struct {
	svc   *document.Service
	repo  *docrepo.MemoryRepository
	store *vmemory.Store
}

func newPipeline(t *testing.T, extractor document.TextExtractor) *pipeline {
	t.Helper()
	repo := docrepo.NewMemoryRepository()
	store := vmemory.NewStore()
	svc := document.NewService(
		document.Config{MaxFileBytes: 1 << 20, IndexName: "pdf-chatbot-index"},
		repo,
		docrepo.NewMemoryFileRepository(),
		storage.NewMemoryStorage(),
		extractor,
		splitter.NewRecursive(splitter.Config{ChunkSize: 60, ChunkOverlap: 10}),
		embedder.NewDeterministicEmbedder(16),
		store,
		queue.NewImmediateQueue(nil),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return &pipeline{svc: svc, repo: repo, store: store}
}

func pdfBytes(payload string) []byte {
	return []byte("%PDF-1.4\n" + payload)
}

// gatedEmbedder blocks embedding until the gate opens, then fails if
// its context has been canceled. Lets tests cancel an upload request
// before the background job reaches the embedding stage.
type gatedEmbedder struct {
	inner document.Embedder
	gate  <-chan struct{}
}

func (e *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	<-e.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.inner.Embed(ctx, texts)
}

func TestUpload_JobOutlivesRequestContext(t *testing.T) {
	gate := make(chan struct{})
	repo := docrepo.NewMemoryRepository()
	store := vmemory.NewStore()
	jobs := queue.NewImmediateQueue(nil)
	svc := document.NewService(
		document.Config{MaxFileBytes: 1 << 20, IndexName: "pdf-chatbot-index"},
		repo,
		docrepo.NewMemoryFileRepository(),
		storage.NewMemoryStorage(),
		&fixedExtractor{text: "body text indexed after the upload response was sent", pages: 1},
		splitter.NewRecursive(splitter.Config{ChunkSize: 60, ChunkOverlap: 10}),
		&gatedEmbedder{inner: embedder.NewDeterministicEmbedder(16), gate: gate},
		store,
		jobs,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	processed := make(chan error, 1)
	jobs.SetHandler(func(ctx context.Context, _ string, payload map[string]any) {
		raw, _ := payload["document_id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			processed <- err
			return
		}
		processed <- svc.Process(ctx, id)
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	resp, err := svc.Upload(reqCtx, document.UploadRequest{Content: pdfBytes("x")})
	require.NoError(t, err)

	// The request context dies as soon as the 202 goes out. The queued
	// job must still finish.
	cancel()
	close(gate)

	select {
	case err := <-processed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background processing never finished")
	}

	doc, err := svc.Get(context.Background(), resp.Document.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusProcessed, doc.Status)
	require.Nil(t, doc.FailureReason)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{})

	_, err := p.svc.Upload(context.Background(), document.UploadRequest{
		Filename: "notes.txt",
		Content:  []byte("plain text"),
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestUpload_RejectsEmptyAndOversized(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{})

	_, err := p.svc.Upload(context.Background(), document.UploadRequest{Filename: "a.pdf"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	big := make([]byte, (1<<20)+1)
	copy(big, "%PDF-1.4")
	_, err = p.svc.Upload(context.Background(), document.UploadRequest{Filename: "big.pdf", Content: big})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestUpload_DefaultsTitleAndFilename(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{})

	resp, err := p.svc.Upload(context.Background(), document.UploadRequest{Content: pdfBytes("x")})
	require.NoError(t, err)
	require.Equal(t, "document.pdf", resp.Document.Filename)
	require.Equal(t, "document.pdf", resp.Document.Title)
	require.Equal(t, document.StatusPending, resp.Document.Status)
}

func TestProcess_FullPipeline(t *testing.T) {
	text := strings.Repeat("Go is expressive, concise, clean, and efficient. ", 10)
	p := newPipeline(t, &fixedExtractor{text: text, pages: 3})

	resp, err := p.svc.Upload(context.Background(), document.UploadRequest{
		Filename: "golang intro.pdf",
		Title:    "Introduction to Go",
		Content:  pdfBytes(text),
	})
	require.NoError(t, err)

	require.NoError(t, p.svc.Process(context.Background(), resp.Document.ID))

	doc, err := p.svc.Get(context.Background(), resp.Document.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusProcessed, doc.Status)
	require.Equal(t, 3, doc.Pages)
	require.Positive(t, doc.ChunkCount)
	require.Equal(t, 16, doc.VectorDim)
	require.Equal(t, doc.ChunkCount, p.store.Len())

	stages := make([]string, 0, len(doc.Stages))
	for _, ev := range doc.Stages {
		stages = append(stages, ev.Stage)
	}
	require.Subset(t, stages, []string{"extract", "split", "embed", "index", "upsert", "done"})

	count, err := p.svc.ProcessedCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestProcess_AlreadyProcessedIsIdempotent(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{text: "short document text", pages: 1})

	resp, err := p.svc.Upload(context.Background(), document.UploadRequest{Content: pdfBytes("x")})
	require.NoError(t, err)
	require.NoError(t, p.svc.Process(context.Background(), resp.Document.ID))

	vectors := p.store.Len()
	require.NoError(t, p.svc.Process(context.Background(), resp.Document.ID))
	require.Equal(t, vectors, p.store.Len())
}

func TestProcess_ExtractionFailureMarksDocumentFailed(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{err: apperrors.Wrap(apperrors.CodeInvalidInput, "pdf contains no extractable text", nil)})

	resp, err := p.svc.Upload(context.Background(), document.UploadRequest{Content: pdfBytes("x")})
	require.NoError(t, err)

	require.Error(t, p.svc.Process(context.Background(), resp.Document.ID))

	doc, err := p.svc.Get(context.Background(), resp.Document.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusFailed, doc.Status)
	require.NotNil(t, doc.FailureReason)
	require.Equal(t, "text extraction failed", *doc.FailureReason)
}

func TestProcess_UnknownDocument(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{})

	err := p.svc.Process(context.Background(), uuid.New())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestReset_ClearsDocumentsAndVectors(t *testing.T) {
	p := newPipeline(t, &fixedExtractor{text: "some document body to index", pages: 1})

	resp, err := p.svc.Upload(context.Background(), document.UploadRequest{Content: pdfBytes("x")})
	require.NoError(t, err)
	require.NoError(t, p.svc.Process(context.Background(), resp.Document.ID))
	require.Positive(t, p.store.Len())

	require.NoError(t, p.svc.Reset(context.Background()))
	require.Zero(t, p.store.Len())

	docs, err := p.svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)

	count, err := p.svc.ProcessedCount(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}
