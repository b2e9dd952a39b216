package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"webterms/api/internal/app"
	"webterms/api/internal/blob"
	"webterms/api/internal/config"
	"webterms/api/internal/converter"
	"webterms/api/internal/docstore"
	"webterms/api/internal/publisher"
	"webterms/api/internal/search"
	"webterms/api/internal/session"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := docstore.Open(cfg.DataFile)
	if err != nil {
		log.Fatalf("document store open failed: %v", err)
	}

	var blobs blob.Storage
	if cfg.BlobBackend == "s3" {
		blobs, err = blob.NewMinioStorage(ctx, blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatalf("s3 storage init failed: %v", err)
		}
	} else {
		blobs, err = blob.NewFilesystemStorage(cfg.StorageDir)
		if err != nil {
			log.Fatalf("filesystem storage init failed: %v", err)
		}
	}

	conv := converter.New(cfg.ConverterURL, cfg.ConverterTimeout)
	pub := publisher.New(cfg.PublicRepoDir, cfg.PublicRepoSlug)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory session storage")
		sessions = session.NewMemoryStore()
	}

	service := app.New(cfg, store, blobs, conv, pub, searchService, sessions)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Webterms API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
