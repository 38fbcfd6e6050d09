package embedder

import (
	"context"

	"github.com/dkoval/ragchat/internal/infra/llm/azureopenai"
	"github.com/dkoval/ragchat/pkg/errors"
)

// AzureEmbedder produces embeddings through an Azure OpenAI embedding
// deployment, batching inputs to stay under the request size limit.
type AzureEmbedder struct {
	client    *azureopenai.Client
	model     string
	batchSize int
}

// NewAzureEmbedder wraps client. model names the embedding model sent
// with each request; Azure routes by deployment, so it may be empty.
func NewAzureEmbedder(client *azureopenai.Client, model string, batchSize int) *AzureEmbedder {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &AzureEmbedder{client: client, model: model, batchSize: batchSize}
}

func (e *AzureEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.client.CreateEmbedding(ctx, azureopenai.EmbeddingRequest{Input: texts[start:end], Model: e.model})
		if err != nil {
			return nil, errors.Wrap(errors.CodeEmbeddingError, "azure embedding request failed", err)
		}
		if len(resp.Data) != end-start {
			return nil, &errors.AppError{
				Code:    errors.CodeEmbeddingError,
				Message: "embedding count does not match input count",
			}
		}
		batch := make([][]float32, end-start)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, &errors.AppError{
					Code:    errors.CodeEmbeddingError,
					Message: "embedding index out of range",
				}
			}
			batch[d.Index] = d.Embedding
		}
		out = append(out, batch...)
	}
	return out, nil
}
