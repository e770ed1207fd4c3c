package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	"broadrange-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "study_tasks"

// maxDocumentChars keeps documents under the embedding model's token limit.
const maxDocumentChars = 8000

// TaskDocument is the searchable view of one study task.
type TaskDocument struct {
	TaskID  string
	PlanID  string
	UserID  string
	Date    string
	Subject string
	Text    string
}

// SearchHit is a task id with its embedding distance (lower is closer).
type SearchHit struct {
	TaskID   string
	Distance float64
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewChromaClient(ctx context.Context, cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// The embedding function reads the key from the environment.
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection: %s", collectionName)

	return &ChromaClient{
		client:     client,
		collection: collection,
	}, nil
}

// UpsertTasks indexes docs in one batch, replacing existing entries with the
// same task id.
func (c *ChromaClient) UpsertTasks(ctx context.Context, docs []TaskDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]chroma.DocumentID, 0, len(docs))
	texts := make([]string, 0, len(docs))
	metadatas := make([]chroma.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
			"user_id": d.UserID,
			"plan_id": d.PlanID,
			"date":    d.Date,
			"subject": d.Subject,
		})
		if err != nil {
			return fmt.Errorf("failed to create metadata: %w", err)
		}

		text := d.Text
		if len(text) > maxDocumentChars {
			text = text[:maxDocumentChars]
		}

		ids = append(ids, chroma.DocumentID(d.TaskID))
		texts = append(texts, text)
		metadatas = append(metadatas, metadata)
	}

	err := c.collection.Upsert(
		ctx,
		chroma.WithIDs(ids...),
		chroma.WithMetadatas(metadatas...),
		chroma.WithTexts(texts...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task embeddings: %w", err)
	}
	return nil
}

// DeleteTasks removes the given task ids from the index.
func (c *ChromaClient) DeleteTasks(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	ids := make([]chroma.DocumentID, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = chroma.DocumentID(id)
	}
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(ids...)); err != nil {
		return fmt.Errorf("failed to delete task embeddings: %w", err)
	}
	return nil
}

// SemanticSearch returns the user's tasks closest to query.
func (c *ChromaClient) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]SearchHit, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []SearchHit{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []SearchHit{}, nil
	}

	hits := make([]SearchHit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		hit := SearchHit{TaskID: string(id)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}

	log.Printf("[SemanticSearch] %d results for user %s", len(hits), userID)
	return hits, nil
}
