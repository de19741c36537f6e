// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/ai/gemini"
	"github.com/poiesic/chatforge/chat"
	"github.com/poiesic/chatforge/chunk"
	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/document"
	"github.com/poiesic/chatforge/ingestion"
	"github.com/poiesic/chatforge/memory"
	"github.com/poiesic/chatforge/storage"
	"github.com/poiesic/chatforge/storage/badger"
	"github.com/poiesic/chatforge/vector"
	"github.com/poiesic/chatforge/vector/qdrant"
)

func main() {
	app := &cli.App{
		Name:  "chatforge",
		Usage: "Document-grounded chatbot engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest documents into a chatbot's knowledge base",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chatbot",
						Usage:    "Chatbot identifier",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of documents to process concurrently",
						Value: 2,
					},
				),
			},
			{
				Name:      "chat",
				Usage:     "Chat with a bot (single message, or interactive when no message is given)",
				ArgsUsage: "[MESSAGE]",
				Action:    chatCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chatbot",
						Usage:    "Chatbot identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session identifier (conversations persist per session)",
						Value: "cli",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User identifier for rate limiting and usage tracking",
						Value: "cli-user",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Generation model",
						Value: "gemini-2.0-flash",
					},
				),
			},
			{
				Name:   "delete-document",
				Usage:  "Remove a document's vectors and status",
				Action: deleteDocumentCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "Tenant identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chatbot",
						Usage:    "Chatbot identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "document",
						Usage:    "Document identifier to delete",
						Required: true,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show document ingestion statuses",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Show a single document instead of all",
					},
				},
			},
			{
				Name:   "usage",
				Usage:  "Summarize AI usage over a date range",
				Action: usageCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:   "since",
						Usage:  "Start of the range (RFC 3339)",
						Layout: time.RFC3339,
					},
					&cli.TimestampFlag{
						Name:   "until",
						Usage:  "End of the range (RFC 3339)",
						Layout: time.RFC3339,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// connectionFlags are shared by every command that talks to BadgerDB,
// Qdrant, and Gemini.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "qdrant-host",
			Usage: "Qdrant host",
			Value: "localhost",
		},
		&cli.IntFlag{
			Name:  "qdrant-port",
			Usage: "Qdrant gRPC port",
			Value: 6334,
		},
		&cli.StringFlag{
			Name:    "qdrant-api-key",
			Usage:   "Qdrant API key",
			EnvVars: []string{"QDRANT_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Usage:   "Gemini API key",
			EnvVars: []string{"GEMINI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-004",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding dimension (must match the embedding model)",
			Value: 768,
		},
	}
}

// openVectorGateway connects to Qdrant and wraps it in the namespace-aware
// gateway.
func openVectorGateway(c *cli.Context) (*vector.Gateway, error) {
	backend, err := qdrant.NewBackend(qdrant.Config{
		Host:   c.String("qdrant-host"),
		Port:   c.Int("qdrant-port"),
		APIKey: c.String("qdrant-api-key"),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return vector.NewGateway(backend, c.Int("dimension"))
}

func newGeminiProvider(c *cli.Context) (*gemini.Provider, error) {
	apiKey := c.String("gemini-api-key")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (flag or GEMINI_API_KEY)")
	}
	return gemini.NewProvider(c.Context, apiKey,
		gemini.WithEmbeddingModel(c.String("embedding-model")))
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("at least one file argument is required")
	}

	// Open database
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	statuses := badger.NewDocumentStatusRepository(backend)

	// Create the processing chain
	splitter, err := chunk.NewSplitter()
	if err != nil {
		return fmt.Errorf("failed to create splitter: %w", err)
	}
	processor, err := document.NewProcessor(splitter)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}

	provider, err := newGeminiProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	gateway, err := openVectorGateway(c)
	if err != nil {
		return err
	}

	pipeline, err := ingestion.NewPipeline(processor, provider.Embedder(), gateway, statuses,
		ingestion.WithPoolSize(c.Int("workers")))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	// Load the documents
	docs := make([]ingestion.Document, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)
		docs = append(docs, ingestion.Document{
			ID:       name,
			Name:     name,
			MimeType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		})
	}

	namespace := vector.NamespaceFor(c.String("tenant"), c.String("chatbot"))

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Namespace: %s\n", namespace)
	fmt.Fprintf(os.Stderr, "Documents: %d\n\n", len(docs))

	if err := pipeline.IngestBatch(ctx, namespace, docs); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	for _, doc := range docs {
		status, err := pipeline.Status(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to read status for %s: %w", doc.ID, err)
		}
		fmt.Printf("%s: %s (%d chunks)\n", doc.ID, status.State, status.ChunkCount)
	}

	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	// Open database
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	conversations, err := badger.NewConversationRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create conversation repository: %w", err)
	}
	defer conversations.Close()

	messages, err := badger.NewMessageRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create message repository: %w", err)
	}
	defer messages.Close()

	usage, err := badger.NewUsageRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create usage repository: %w", err)
	}
	defer usage.Close()

	// Memory layer
	manager, err := memory.NewManager(conversations, messages)
	if err != nil {
		return fmt.Errorf("failed to create memory manager: %w", err)
	}
	orchestrator, err := memory.NewOrchestrator(manager, nil)
	if err != nil {
		return fmt.Errorf("failed to create memory orchestrator: %w", err)
	}

	// AI gateway
	provider, err := newGeminiProvider(c)
	if err != nil {
		return err
	}

	recorder := ai.NewUsageRecorder(usage)
	gateway, err := ai.NewGateway([]ai.Provider{provider}, ai.WithUsageSink(recorder))
	if err != nil {
		return fmt.Errorf("failed to create AI gateway: %w", err)
	}
	defer gateway.Close()

	vectors, err := openVectorGateway(c)
	if err != nil {
		return err
	}

	service, err := chat.NewService(manager, orchestrator, gateway, provider.Embedder(), vectors,
		chat.WithModel(c.String("model")))
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	ask := func(message string) error {
		resp, err := service.HandleMessage(ctx, &chat.Request{
			TenantId:  c.String("tenant"),
			ChatbotId: c.String("chatbot"),
			SessionId: c.String("session"),
			UserId:    c.String("user"),
			Message:   message,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Reply)
		if len(resp.Sources) > 0 {
			fmt.Fprintf(os.Stderr, "(sources: %s)\n", strings.Join(resp.Sources, ", "))
		}
		return nil
	}

	// Single message mode
	if c.NArg() > 0 {
		return ask(strings.Join(c.Args().Slice(), " "))
	}

	// Interactive mode
	fmt.Fprintf(os.Stderr, "Chatting with %s (model %s). Ctrl-D to quit.\n", c.String("chatbot"), c.String("model"))
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ask(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func deleteDocumentCommand(c *cli.Context) error {
	ctx := context.Background()

	// Open database
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	statuses := badger.NewDocumentStatusRepository(backend)

	gateway, err := openVectorGateway(c)
	if err != nil {
		return err
	}

	namespace := vector.NamespaceFor(c.String("tenant"), c.String("chatbot"))
	documentID := c.String("document")

	removed, err := gateway.DeleteDocumentVectors(ctx, namespace, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := statuses.DeleteDocumentStatus(ctx, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete status: %w", err)
	}

	fmt.Printf("Removed %d vectors for %s\n", removed, documentID)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	// Open database
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	statuses := badger.NewDocumentStatusRepository(backend)

	if documentID := c.String("document"); documentID != "" {
		status, err := statuses.GetDocumentStatus(ctx, documentID)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		printStatus(status)
		return nil
	}

	all, err := statuses.ListDocumentStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list statuses: %w", err)
	}
	if len(all) == 0 {
		fmt.Println("No documents ingested.")
		return nil
	}
	for _, status := range all {
		printStatus(status)
	}
	return nil
}

func printStatus(status *core.DocumentStatus) {
	line := fmt.Sprintf("%s: %s (%d chunks, updated %s)",
		status.DocumentId, status.State, status.ChunkCount, status.UpdatedAt.Format(time.RFC3339))
	if status.Error != "" {
		line += " error: " + status.Error
	}
	fmt.Println(line)
}

func usageCommand(c *cli.Context) error {
	ctx := context.Background()

	// Default to the last 30 days
	end := time.Now().UTC()
	if t := c.Timestamp("until"); t != nil {
		end = *t
	}
	start := end.AddDate(0, 0, -30)
	if t := c.Timestamp("since"); t != nil {
		start = *t
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	usage, err := badger.NewUsageRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create usage repository: %w", err)
	}
	defer usage.Close()

	records, err := usage.GetUsageByDateRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to query usage: %w", err)
	}

	var totalTokens, failures int
	perModel := map[string]int{}
	for _, record := range records {
		totalTokens += record.TotalTokens
		perModel[record.Model] += record.TotalTokens
		if !record.Success {
			failures++
		}
	}

	fmt.Printf("Usage %s to %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	fmt.Printf("Requests: %d (%d failed)\n", len(records), failures)
	fmt.Printf("Total tokens: %d\n", totalTokens)
	for model, tokens := range perModel {
		fmt.Printf("  %s: %d tokens\n", model, tokens)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
