package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/rickgao/oracle-relay/internal/source"
	"github.com/rickgao/oracle-relay/internal/version"
)

// quotecheck performs one fetch-and-normalize round against a data source.
// Useful for verifying source connectivity and scaling before pointing the
// relay at it.
func main() {
	url := flag.String("url", "", "data source URL")
	apiKey := flag.String("key", "", "data source API key")
	scale := flag.Int("scale", 10, "fractional-digit shift for normalization")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if *url == "" {
		logger.Error("missing required -url flag")
		os.Exit(1)
	}

	logger.Info("quotecheck", "version", version.Version, "url", *url, "scale", *scale)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := source.NewClient(*url, *apiKey,
		source.WithLogger(logger),
		source.WithTimeout(*timeout),
	)

	start := time.Now()
	raw, err := client.GetQuote(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	value, err := source.Normalize(raw, *scale)
	if err != nil {
		logger.Error("quote does not normalize", "raw", raw, "error", err)
		os.Exit(1)
	}

	logger.Info("quote ok",
		"raw", raw,
		"normalized", value.String(),
		"latency", time.Since(start),
	)
}
