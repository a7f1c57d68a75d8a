package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cipher_workbench/internal/api"
	"cipher_workbench/internal/config"
	"cipher_workbench/internal/rerank"
	"cipher_workbench/internal/workspace"
)

func main() {
	configPath := os.Getenv("CWB_CONFIG")
	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-config":
			i++
			if i == len(os.Args) {
				log.Fatal("-config needs a path")
			}
			configPath = os.Args[i]
		default:
			log.Fatalf("unknown option %s", os.Args[i])
		}
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	root := cfg.Workspace.Dir
	if root == "" {
		root, err = workspace.EnsureDefault()
	} else {
		root, err = workspace.EnsureAt(root)
	}
	if err != nil {
		log.Fatalf("Failed to prepare workspace: %v", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = workspace.DBPath(root)
	}

	reranker := rerank.FromConfig(cfg.Rerank)
	svc := api.NewAnalysisService(cfg, reranker, dbPath, root)
	router := api.NewRouter(svc)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		log.Printf("Cipher Workbench API listening on %s", server.Addr)
		log.Printf("Workspace: %s", root)
		log.Printf("Database: %s", dbPath)
		if reranker != nil {
			log.Printf("Reranker: %s", reranker.Name())
		} else {
			log.Printf("Reranker: disabled")
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
