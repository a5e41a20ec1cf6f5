// Package main is the tsunagu CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedcache"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/graph"
	"github.com/hyperjump/tsunagu/internal/links"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/vault"
	"github.com/hyperjump/tsunagu/internal/watcher"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// components wires the process-wide singletons: the lazily loaded embedding
// model, the cache manager, the search engine, and the analyzers on top.
type components struct {
	cfg       *config.Config
	logger    *zap.Logger
	embedder  *embedding.Lazy
	manager   *embedcache.Manager
	engine    *search.Engine
	analyzer  *graph.Analyzer
	suggester *links.Suggester
}

func setup(cmd *cli.Command) (*components, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug || cmd.Bool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	embedder := embedding.NewLazy(cfg.Embedding.Dimensions, func() (embedding.Embedder, error) {
		return embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
	})
	manager := embedcache.NewManager(cfg.Cache.Dir, cfg.Embedding.Model, embedder, logger)
	engine := search.NewEngine(manager, cfg.Cache.Dir, logger)
	analyzer := graph.NewAnalyzer(engine, logger)
	suggester := links.NewSuggester(analyzer, logger)

	return &components{
		cfg:       cfg,
		logger:    logger,
		embedder:  embedder,
		manager:   manager,
		engine:    engine,
		analyzer:  analyzer,
		suggester: suggester,
	}, nil
}

func (c *components) close() {
	_ = c.embedder.Close()
	_ = c.logger.Sync()
}

// readNote loads a vault-relative note path from disk.
func (c *components) readNote(rel string) (models.Note, error) {
	data, err := os.ReadFile(filepath.Join(c.cfg.Vault.Path, filepath.FromSlash(rel)))
	if err != nil {
		return models.Note{}, fmt.Errorf("read note %s: %w", rel, err)
	}
	return models.Note{Path: rel, Content: string(data)}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func notePathArg(cmd *cli.Command) (string, error) {
	p := cmd.Args().First()
	if p == "" {
		return "", fmt.Errorf("note path argument is required")
	}
	return p, nil
}

func main() {
	app := &cli.Command{
		Name:    "tsunagu",
		Usage:   "Semantic index and relationship engine for a markdown note vault",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("TSUNAGU_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			cmdBuild(),
			cmdSearch(),
			cmdRelated(),
			cmdClusters(),
			cmdIsolated(),
			cmdBridges(),
			cmdGraph(),
			cmdMentions(),
			cmdSuggest(),
			cmdBidirectional(),
			cmdConnectivity(),
			cmdStatus(),
			cmdClearCache(),
			cmdWatch(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tsunagu: %v\n", err)
		os.Exit(1)
	}
}

func cmdBuild() *cli.Command {
	var force bool
	return &cli.Command{
		Name:  "build",
		Usage: "Scan the vault and (re)build the semantic index",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Re-embed every note even when cached", Destination: &force},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			notes, err := vault.Scan(c.cfg.Vault.Path, c.cfg.Vault.Extensions)
			if err != nil {
				return err
			}
			result, err := c.engine.Build(ctx, notes, force)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func cmdSearch() *cli.Command {
	var topK int64
	var minSim float64
	var folder string
	return &cli.Command{
		Name:      "search",
		Usage:     "Search notes by meaning",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Usage: "Maximum results", Value: 0, Destination: &topK},
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
			&cli.StringFlag{Name: "folder", Usage: "Restrict results to a vault folder", Destination: &folder},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("query argument is required")
			}
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if topK <= 0 {
				topK = int64(c.cfg.Similarity.TopK)
			}
			if minSim == 0 {
				minSim = c.cfg.Similarity.SearchMin
			}
			results, err := c.engine.Search(ctx, query, int(topK), minSim, folder)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
}

func cmdRelated() *cli.Command {
	var topK int64
	var minSim float64
	return &cli.Command{
		Name:      "related",
		Usage:     "Find notes related to a note",
		ArgsUsage: "<note-path>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Usage: "Maximum results", Destination: &topK},
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rel, err := notePathArg(cmd)
			if err != nil {
				return err
			}
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			note, err := c.readNote(rel)
			if err != nil {
				return err
			}
			if topK <= 0 {
				topK = int64(c.cfg.Similarity.TopK)
			}
			if minSim == 0 {
				minSim = c.cfg.Similarity.RelatedMin
			}
			results, err := c.analyzer.RelatedNotes(ctx, note.Path, note.Content, int(topK), minSim)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
}

func thresholdFolderCommand(name, usage string, defaultSim func(*config.Config) float64, run func(*components, float64, string) any) *cli.Command {
	var minSim float64
	var folder string
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
			&cli.StringFlag{Name: "folder", Usage: "Restrict analysis to a vault folder", Destination: &folder},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if minSim == 0 {
				minSim = defaultSim(c.cfg)
			}
			return printJSON(run(c, minSim, folder))
		},
	}
}

func cmdClusters() *cli.Command {
	return thresholdFolderCommand("clusters", "Find clusters of related notes",
		func(cfg *config.Config) float64 { return cfg.Similarity.ClusterMin },
		func(c *components, minSim float64, folder string) any {
			return c.analyzer.Clusters(minSim, folder)
		})
}

func cmdIsolated() *cli.Command {
	return thresholdFolderCommand("isolated", "Find notes with few semantic connections",
		func(cfg *config.Config) float64 { return cfg.Similarity.RelatedMin },
		func(c *components, minSim float64, folder string) any {
			return c.analyzer.Isolated(minSim, folder)
		})
}

func cmdBridges() *cli.Command {
	return thresholdFolderCommand("bridges", "Find notes that bridge different clusters",
		func(cfg *config.Config) float64 { return cfg.Similarity.ClusterMin },
		func(c *components, minSim float64, folder string) any {
			return c.analyzer.Bridges(minSim, folder)
		})
}

func cmdGraph() *cli.Command {
	return thresholdFolderCommand("graph", "Print the note similarity graph",
		func(cfg *config.Config) float64 { return cfg.Similarity.ClusterMin },
		func(c *components, minSim float64, folder string) any {
			return c.analyzer.Graph(minSim, folder)
		})
}

func cmdMentions() *cli.Command {
	return &cli.Command{
		Name:      "mentions",
		Usage:     "Find unlinked mentions of other notes in a note",
		ArgsUsage: "<note-path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rel, err := notePathArg(cmd)
			if err != nil {
				return err
			}
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			note, err := c.readNote(rel)
			if err != nil {
				return err
			}
			return printJSON(c.suggester.UnlinkedMentions(note.Path, note.Content))
		},
	}
}

func cmdSuggest() *cli.Command {
	var max int64
	var minSim float64
	var skipExisting bool
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Suggest links to add to a note",
		ArgsUsage: "<note-path>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max", Usage: "Maximum suggestions", Destination: &max},
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
			&cli.BoolFlag{Name: "include-linked", Usage: "Also suggest notes that are already linked", Destination: &skipExisting},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rel, err := notePathArg(cmd)
			if err != nil {
				return err
			}
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			note, err := c.readNote(rel)
			if err != nil {
				return err
			}
			if max <= 0 {
				max = int64(c.cfg.Similarity.MaxSuggestions)
			}
			if minSim == 0 {
				minSim = c.cfg.Similarity.LinkMin
			}
			suggestions, err := c.suggester.SuggestLinks(ctx, note.Path, note.Content, int(max), minSim, !skipExisting)
			if err != nil {
				return err
			}
			return printJSON(suggestions)
		},
	}
}

func cmdBidirectional() *cli.Command {
	var minSim float64
	return &cli.Command{
		Name:      "bidirectional",
		Usage:     "Suggest reciprocal links for a note",
		ArgsUsage: "<note-path>",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rel, err := notePathArg(cmd)
			if err != nil {
				return err
			}
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			note, err := c.readNote(rel)
			if err != nil {
				return err
			}
			if minSim == 0 {
				minSim = c.cfg.Similarity.BidirectionalMin
			}
			suggestions, err := c.suggester.Bidirectional(ctx, note.Path, note.Content, minSim)
			if err != nil {
				return err
			}
			return printJSON(suggestions)
		},
	}
}

func cmdConnectivity() *cli.Command {
	var minSim float64
	return &cli.Command{
		Name:  "connectivity",
		Usage: "Report vault-wide connectivity health",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "min-similarity", Usage: "Minimum similarity threshold", Destination: &minSim},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if minSim == 0 {
				minSim = c.cfg.Similarity.LinkMin
			}
			return printJSON(c.suggester.ConnectivityReport(minSim))
		},
	}
}

func cmdStatus() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cache and index statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			return printJSON(map[string]any{
				"cache": c.manager.Stats(),
				"index": c.engine.Stats(),
			})
		},
	}
}

func cmdClearCache() *cli.Command {
	return &cli.Command{
		Name:  "clear-cache",
		Usage: "Discard all cached embeddings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			return c.manager.Clear()
		},
	}
}

func cmdWatch() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the vault and keep the index current",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			rebuild := func() {
				notes, err := vault.Scan(c.cfg.Vault.Path, c.cfg.Vault.Extensions)
				if err != nil {
					c.logger.Warn("vault scan failed", zap.Error(err))
					return
				}
				// Unchanged notes are cache hits, so this re-embeds only
				// what actually changed.
				if _, err := c.engine.Build(ctx, notes, false); err != nil {
					c.logger.Warn("index rebuild failed", zap.Error(err))
				}
			}
			rebuild()

			w := watcher.New(
				c.cfg.Vault.Path,
				c.cfg.Vault.Extensions,
				func(string) { rebuild() },
				func(abs string) {
					if rel, err := filepath.Rel(c.cfg.Vault.Path, abs); err == nil {
						if err := c.manager.Remove(filepath.ToSlash(rel)); err != nil {
							c.logger.Warn("cache remove failed", zap.String("path", rel), zap.Error(err))
						}
					}
					rebuild()
				},
				watcher.WithLogger(c.logger),
			)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			c.logger.Info("watching vault", zap.String("path", c.cfg.Vault.Path))
			<-ctx.Done()
			return nil
		},
	}
}
