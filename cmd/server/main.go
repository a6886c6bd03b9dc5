package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mmynk/billsnap/internal/imagestore"
	"github.com/mmynk/billsnap/internal/ocr"
	"github.com/mmynk/billsnap/internal/router"
	"github.com/mmynk/billsnap/internal/service"
	"github.com/mmynk/billsnap/internal/storage/memory"
	"github.com/mmynk/billsnap/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if getEnv("LOG_FORMAT", "text") == "json" {
		logging.SetupJSON(slog.LevelInfo)
	} else {
		logging.Setup()
	}

	port := getEnv("PORT", "8080")
	currency := getEnv("CURRENCY", "USD")

	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiModel := getEnv("GEMINI_MODEL", "gemini-2.0-flash")
	if geminiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, receipt extraction will fail")
	}
	ocrClient := ocr.NewGeminiClient(geminiKey, geminiModel)

	// Sessions live in memory only and die with the process.
	store := memory.New()
	defer store.Close()

	var archive *imagestore.Client
	archiveCfg := imagestore.Config{
		Endpoint:  os.Getenv("R2_ENDPOINT"),
		AccessKey: os.Getenv("R2_ACCESS_KEY"),
		SecretKey: os.Getenv("R2_SECRET_KEY"),
		Bucket:    os.Getenv("R2_BUCKET_NAME"),
		BaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	if archiveCfg.Enabled() {
		var err error
		archive, err = imagestore.New(context.Background(), archiveCfg)
		if err != nil {
			slog.Error("failed to initialize receipt archive", "error", err)
			os.Exit(1)
		}
		slog.Info("receipt archive enabled", "bucket", archiveCfg.Bucket)
	}

	sessions := service.NewSessionService(store, currency)
	receipts := service.NewReceiptService(store, ocrClient, archive)

	r := router.New(sessions, receipts)

	addr := fmt.Sprintf(":%s", port)
	slog.Info("server starting", "address", addr, "currency", currency, "model", geminiModel)
	if err := r.Run(addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
