// Package cli provides the cobra command tree for the aska CLI.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aska-cli/internal/adapters/driven/config/file"
	embedollama "github.com/custodia-labs/aska-cli/internal/adapters/driven/embedding/ollama"
	llmollama "github.com/custodia-labs/aska-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/aska-cli/internal/adapters/driven/rerank/tei"
	"github.com/custodia-labs/aska-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/aska-cli/internal/adapters/driven/trace"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aska-cli/internal/core/services"
	"github.com/custodia-labs/aska-cli/internal/loaders"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// version is set from main at startup.
var version = "dev"

var (
	flagVerbose bool
	flagDataDir string
)

// Services used by the commands, wired in initServices.
var (
	queryService        driving.QueryService
	indexService        driving.IndexService
	conversationService driving.ConversationService

	appStore *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "aska",
	Short: "Ask questions against your indexed documents",
	Long: `aska indexes local documents and answers questions about them.
Answers carry citations back to the exact source chunks, and follow-up
questions continue the same conversation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		// Services may already be wired, e.g. by tests.
		if queryService != nil || indexService != nil || conversationService != nil {
			return nil
		}
		return initServices()
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if appStore != nil {
			return appStore.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.aska)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records the build version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// initServices builds the adapter stack and the core services.
func initServices() error {
	configStore, err := file.NewConfigStore(flagDataDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	settings, err := configStore.Load()
	if err != nil {
		return err
	}

	endpoints, err := configStore.Services()
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(flagDataDir, settings.Metric)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	appStore = store

	embedder := embedollama.NewEmbeddingService(embedollama.Config{
		BaseURL:    endpoints.Embedding.BaseURL,
		Model:      endpoints.Embedding.Model,
		Timeout:    settings.EmbedTimeout,
		Dimensions: settings.EmbeddingDimensions,
	})

	llm := llmollama.NewLLMService(llmollama.Config{
		BaseURL: endpoints.LLM.BaseURL,
		Model:   endpoints.LLM.Model,
		Timeout: settings.GenerateTimeout,
	})

	// Reranking is optional; without an endpoint the pipeline keeps the
	// first-pass retrieval order.
	var reranker driven.RerankService
	if endpoints.Rerank.BaseURL != "" {
		reranker = tei.NewRerankService(tei.Config{
			BaseURL: endpoints.Rerank.BaseURL,
			Model:   endpoints.Rerank.Model,
			Timeout: settings.RerankTimeout,
		})
	}

	var sink driven.TraceSink = trace.NewNoopSink()
	if flagVerbose {
		sink = trace.NewLoggerSink()
	}

	chunks := store.ChunkStore()
	convs := store.ConversationStore()

	indexService = services.NewIndexer(chunks, embedder, loaders.DefaultRegistry(), settings)
	conversationService = services.NewConversationService(convs)
	queryService = services.NewOrchestrator(
		embedder,
		reranker,
		convs,
		services.NewMemoryAssembler(convs),
		services.NewRetriever(chunks, settings),
		services.NewGenerator(llm, settings),
		services.NewCitationResolver(),
		sink,
		settings,
	)

	return nil
}
