package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"shorts-pipeline/assemble"
	"shorts-pipeline/config"
	"shorts-pipeline/pipeline"
	"shorts-pipeline/web"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	serve := flag.Bool("serve", false, "run the HTTP server instead of a single pipeline run")
	topic := flag.String("topic", "", "topic seed to generate a fact from")
	scriptText := flag.String("script", "", "use this text verbatim instead of generating a topic")
	source := flag.String("source", "", "video source override (pixabay|pexels|storyblocks|luma)")
	doUpload := flag.Bool("upload", false, "upload the result to YouTube")
	flag.Parse()

	// Load .env for local dev; production uses real environment variables
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.Paths.Scratch, cfg.Paths.Output, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	runner := pipeline.New(cfg)

	if *serve {
		srv := web.NewServer(cfg, runner)
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	result, err := runner.Run(context.Background(), pipeline.Request{
		Topic:       *topic,
		Script:      *scriptText,
		VideoSource: *source,
		Upload:      *doUpload,
	})
	if err != nil {
		if errors.Is(err, assemble.ErrNoScenesReady) {
			log.Printf("❌ No scenes could be produced, no video rendered")
			printReport(result)
			os.Exit(1)
		}
		log.Fatalf("❌ Pipeline failed: %v", err)
	}
	printReport(result)
}

func printReport(result *pipeline.Result) {
	if result == nil {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	os.Stdout.Write(append(data, '\n'))
}
