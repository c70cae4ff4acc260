// Package main is the Kusuri CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/kusuri/internal/chunker"
	"github.com/hyperjump/kusuri/internal/config"
	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/extract"
	"github.com/hyperjump/kusuri/internal/inbox"
	"github.com/hyperjump/kusuri/internal/pipeline"
	"github.com/hyperjump/kusuri/internal/retrieval"
	"github.com/hyperjump/kusuri/internal/safety"
	"github.com/hyperjump/kusuri/internal/server"
	"github.com/hyperjump/kusuri/internal/store"
	"github.com/hyperjump/kusuri/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kusuri/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kusuri version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	filter := safety.NewFilter(cfg.Pipeline.MinTextLength, cfg.Pipeline.MaxInputLength, logger)
	docStore := store.NewDocumentStore(logger)

	ch, err := chunker.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}

	var embedder embedding.Embedder
	var retriever retrieval.Retriever
	if cfg.Embedding.Enabled && cfg.Embedding.Endpoint != "" {
		httpEmbedder, err := embedding.NewHTTPEmbedder(embedding.HTTPEmbedderConfig{
			Endpoint:        cfg.Embedding.Endpoint,
			Token:           cfg.Embedding.Token(),
			Dimensions:      cfg.Embedding.Dimensions,
			MaxAttempts:     cfg.Embedding.MaxAttempts,
			RetryBackoff:    cfg.Embedding.RetryBackoff(),
			RequestInterval: cfg.Embedding.RequestInterval(),
			RequestTimeout:  cfg.Embedding.RequestTimeout(),
			CacheSize:       cfg.Embedding.CacheSize,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create embedder", zap.Error(err))
		}
		embedder = httpEmbedder
		retriever = retrieval.NewSimilarityRetriever(docStore, embedder, logger)
	} else {
		retriever = retrieval.NewFullTextRetriever(docStore, filter, logger)
	}

	pipe := pipeline.NewPipeline(extract.NewExtractor(), filter, ch, embedder, docStore, logger)
	logger.Info("pipeline ready", zap.String("mode", pipe.Mode()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Inbox.Enabled && cfg.Inbox.Directory != "" {
		ingester := inbox.NewIngester(cfg.Inbox.Directory, pipe, logger)
		if err := ingester.Start(ctx); err != nil {
			logger.Fatal("Failed to start inbox ingester", zap.Error(err))
		}
		defer ingester.Stop()
	}

	srv := server.NewServer(pipe, retriever, filter, docStore, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}

	if embedder != nil {
		_ = embedder.Close()
	}
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "server address")
	user := fs.String("user", "", "user id (required)")
	_ = fs.Parse(os.Args[2:])

	if *user == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kusuri upload -user <id> <file.pdf>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("pdf", filepath.Base(path))
	if err != nil {
		fmt.Printf("Failed to build request: %v\n", err)
		os.Exit(1)
	}
	if _, err := part.Write(pdfBytes); err != nil {
		fmt.Printf("Failed to build request: %v\n", err)
		os.Exit(1)
	}
	_ = mw.Close()

	url := fmt.Sprintf("%s/api/v1/users/%s/documents", *addr, *user)
	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "server address")
	user := fs.String("user", "", "user id (required)")
	topK := fs.Int("k", 0, "number of snippets (0 = server default)")
	_ = fs.Parse(os.Args[2:])

	if *user == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kusuri query -user <id> \"<query>\"")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"query": fs.Arg(0),
		"top_k": *topK,
	})
	url := fmt.Sprintf("%s/api/v1/users/%s/context", *addr, *user)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "server address")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*addr + "/api/v1/status")
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kusuri - prescription context service

Usage:
  kusuri server [-config path] [-debug]   Run the API server
  kusuri upload -user <id> <file.pdf>     Upload a prescription PDF
  kusuri query -user <id> "<query>"       Retrieve context for a query
  kusuri status                           Show server status
  kusuri version                          Print version`)
}
