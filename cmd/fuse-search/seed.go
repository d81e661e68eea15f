package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/embed"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/qdrant"
)

// seedPassage is one entry in a seed file.
type seedPassage struct {
	Title  string   `json:"title"`
	Text   string   `json:"text"`
	URL    string   `json:"url,omitempty"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Load passages from a JSON file into the vector collection",
		Long: `Seed reads a JSON array of passages, embeds each passage text via the
configured embedder, and upserts the vectors into the Qdrant collection,
creating the collection first if it does not exist.

Passage format:
  [{"title": "...", "text": "...", "url": "...", "source": "...", "tags": ["..."]}]`,
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}

	cmd.Flags().Int("batch-size", 64, "passages per upsert batch")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var passages []seedPassage
	if err := json.Unmarshal(data, &passages); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(passages) == 0 {
		return fmt.Errorf("seed file contains no passages")
	}

	qc, err := qdrant.NewClient(qdrant.ClientConfig{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to create qdrant client: %w", err)
	}
	defer qc.Close()

	embedder := embed.NewClient(embed.Config{
		URL:    cfg.Embedder.URL,
		APIKey: cfg.Embedder.APIKey,
		Model:  cfg.Embedder.Model,
	})

	ctx := cmd.Context()

	collCfg := qdrant.DefaultCollectionConfig(cfg.Qdrant.Collection)
	if cfg.Embedder.Dim > 0 {
		collCfg.VectorSize = uint64(cfg.Embedder.Dim)
	}
	if err := qc.CreateCollection(ctx, collCfg); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info("Seeding collection",
		"collection", cfg.Qdrant.Collection,
		"passages", len(passages),
	)

	now := time.Now().UTC()
	batch := make([]qdrant.Point, 0, batchSize)
	upserted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := qc.UpsertPoints(ctx, cfg.Qdrant.Collection, batch); err != nil {
			return fmt.Errorf("failed to upsert batch: %w", err)
		}
		upserted += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, p := range passages {
		if p.Text == "" {
			log.Warn("skipping passage with empty text", "index", i)
			continue
		}

		vector, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			return fmt.Errorf("failed to embed passage %d: %w", i, err)
		}

		source := p.Source
		if source == "" {
			source = "seed"
		}

		batch = append(batch, qdrant.Point{
			ID:     passageID(p),
			Vector: vector,
			Payload: qdrant.PassagePayload{
				Title:     p.Title,
				Text:      p.Text,
				URL:       p.URL,
				Source:    source,
				Tags:      p.Tags,
				IndexedAt: now,
			},
		})

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	count, err := qc.CountPoints(ctx, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("failed to count points: %w", err)
	}

	log.Info("Seed complete", "upserted", upserted, "collection_total", count)
	fmt.Printf("upserted %d passages (%d total in collection)\n", upserted, count)
	return nil
}

// passageID derives a stable point ID so reseeding the same file updates
// rather than duplicates. Qdrant point IDs must be UUIDs.
func passageID(p seedPassage) string {
	key := p.URL
	if key == "" {
		key = p.Title + "|" + p.Text
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
