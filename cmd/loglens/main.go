// Copyright 2026 Rashmi Rout
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rashmirrout/loglens"
	"github.com/rashmirrout/loglens/config"
	"github.com/rashmirrout/loglens/ingestion"
)

func main() {
	app := &cli.App{
		Name:  "loglens",
		Usage: "Semantic search and question answering over log files",
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
				Name:  "issue",
				Usage: "Manage issues",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a new issue",
						ArgsUsage: "<issue-id>",
						Action:    issueCreateCommand,
					},
					{
						Name:   "list",
						Usage:  "List all issues",
						Action: issueListCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete an issue, its artifacts, and its history",
						ArgsUsage: "<issue-id>",
						Action:    issueDeleteCommand,
					},
					{
						Name:      "add-logs",
						Usage:     "Add log files to an issue",
						ArgsUsage: "<issue-id> <file>...",
						Action:    issueAddLogsCommand,
					},
				},
			},
			{
				Name:      "build",
				Usage:     "Chunk and embed an issue's log files",
				ArgsUsage: "<issue-id>",
				Action:    buildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Embedding model identifier (default: configured model)",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Re-embed even if vectors already exist",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Retrieve the chunks most similar to a query",
				ArgsUsage: "<issue-id> <query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to return (default: configured top_k)",
					},
					&cli.BoolFlag{
						Name:  "scores",
						Usage: "Print similarity scores",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from an issue's log files",
				ArgsUsage: "<issue-id> <query>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Generation model identifier (default: configured model)",
					},
				},
			},
			{
				Name:      "eval",
				Usage:     "Run retrievals for a set of queries concurrently",
				ArgsUsage: "<issue-id> <query>...",
				Action:    evalCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks per query (default: configured top_k)",
					},
				},
			},
			{
				Name:   "models",
				Usage:  "List registered embedding and generation models",
				Action: modelsCommand,
			},
			{
				Name:      "history",
				Usage:     "Show an issue's question and answer history",
				ArgsUsage: "<issue-id>",
				Action:    historyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show only the most recent N messages (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Clear the history instead of showing it",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openAssistant loads the configuration and wires an Assistant from it.
// Callers must Close the returned Assistant.
func openAssistant(ctx context.Context) (*loglens.Assistant, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	assistant, err := loglens.NewAssistant(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return assistant, nil
}

func requireArg(c *cli.Context, index int, name string) (string, error) {
	value := c.Args().Get(index)
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

func issueCreateCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if err := assistant.CreateIssue(issueID); err != nil {
		return err
	}
	fmt.Printf("Created issue %s\n", issueID)
	return nil
}

func issueListCommand(c *cli.Context) error {
	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	issues, err := assistant.ListIssues()
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("No issues")
		return nil
	}
	for _, id := range issues {
		fmt.Println(id)
	}
	return nil
}

func issueDeleteCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if err := assistant.DeleteIssue(ctx, issueID); err != nil {
		return err
	}
	fmt.Printf("Deleted issue %s\n", issueID)
	return nil
}

func issueAddLogsCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}
	files := c.Args().Slice()[1:]
	if len(files) == 0 {
		return fmt.Errorf("at least one log file is required")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		stored, err := assistant.AddLogFile(issueID, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", path, err)
		}
		fmt.Printf("Added %s\n", stored)
	}
	return nil
}

func buildCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	progress := func(p ingestion.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s %s\n", p.Percentage, p.Phase, p.Message)
	}
	meta, err := assistant.Build(ctx, issueID, c.String("model"), c.Bool("force"), progress)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("Built issue %s: %d chunks, %d dimensions, model %s\n",
		issueID, meta.Stats.NumChunks, meta.Stats.EmbeddingDim, meta.EmbeddingModel)
	return nil
}

func searchCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice()[1:], " ")
	if query == "" {
		return fmt.Errorf("query is required")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	scored, err := assistant.Retrieve(ctx, issueID, query, c.Int("top-k"))
	if err != nil {
		return err
	}

	for i, sc := range scored {
		chunk := sc.Chunk
		if c.Bool("scores") {
			fmt.Printf("--- %d. %s (lines %d-%d, score %.4f)\n",
				i+1, chunk.Metadata.FilePath, chunk.StartLine, chunk.EndLine, sc.Score)
		} else {
			fmt.Printf("--- %d. %s (lines %d-%d)\n",
				i+1, chunk.Metadata.FilePath, chunk.StartLine, chunk.EndLine)
		}
		fmt.Println(chunk.Text)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice()[1:], " ")
	if query == "" {
		return fmt.Errorf("query is required")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	answer, err := assistant.Ask(ctx, issueID, query, c.String("model"))
	if err != nil {
		return err
	}

	if answer.Fallback {
		fmt.Fprintln(os.Stderr, "Warning: generation unavailable, answer summarizes retrieved context")
	}
	fmt.Println(answer.Answer)
	if len(answer.References) > 0 {
		fmt.Println("\nReferences:")
		for _, ref := range answer.References {
			fmt.Printf("  - %s\n", ref)
		}
	}
	return nil
}

func evalCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}
	queries := c.Args().Slice()[1:]
	if len(queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	results := assistant.EvalQueries(ctx, issueID, queries, c.Int("top-k"))
	for _, result := range results {
		if result.Err != nil {
			fmt.Printf("%s: error: %v\n", result.Query, result.Err)
			continue
		}
		fmt.Printf("%s:\n", result.Query)
		for _, sc := range result.Chunks {
			fmt.Printf("  %.4f %s (lines %d-%d)\n",
				sc.Score, sc.Chunk.Metadata.FilePath, sc.Chunk.StartLine, sc.Chunk.EndLine)
		}
	}
	return nil
}

func modelsCommand(c *cli.Context) error {
	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	embedders, generators := assistant.Models()
	fmt.Println("Embedding models:")
	for _, id := range embedders {
		fmt.Printf("  %s\n", id)
	}
	fmt.Println("Generation models:")
	for _, id := range generators {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	issueID, err := requireArg(c, 0, "issue-id")
	if err != nil {
		return err
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if c.Bool("clear") {
		if err := assistant.ClearHistory(ctx, issueID); err != nil {
			return err
		}
		fmt.Printf("Cleared history for issue %s\n", issueID)
		return nil
	}

	messages, err := assistant.History(ctx, issueID, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, msg := range messages {
		fmt.Printf("[%s] %s: %s\n",
			msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Role, msg.Message)
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
