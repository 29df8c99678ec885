package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stake-plus/legal-agent/src/agents/core"
	_ "github.com/stake-plus/legal-agent/src/agents/azure"
	"github.com/stake-plus/legal-agent/src/client"
	"github.com/stake-plus/legal-agent/src/config"
	"github.com/stake-plus/legal-agent/src/logging"
	"github.com/stake-plus/legal-agent/src/query"
)

var (
	modeFlag    = flag.String("mode", "http", "http|direct")
	urlFlag     = flag.String("url", "http://localhost:8000", "Server base URL for http mode")
	queryFlag   = flag.String("query", defaultQuery, "Query text")
	docFlag     = flag.String("doc", "", "Path to a text file appended as extracted document text")
	timeoutFlag = flag.Duration("timeout", 3*time.Minute, "Overall timeout")
	maxLenFlag  = flag.Int("max-bytes", 2000, "Maximum bytes of the reply to print (0=unlimited)")
	details     detailFlags
)

// detailFlags collects repeated -detail key=value flags in order.
type detailFlags []string

func (d *detailFlags) String() string { return strings.Join(*d, ",") }

func (d *detailFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return errors.New("expected key=value")
	}
	*d = append(*d, v)
	return nil
}

func main() {
	flag.Var(&details, "detail", "Additional detail as key=value (repeatable)")
	flag.Parse()

	log := logging.NewWithWriter(os.Stderr, os.Getenv("LOG_LEVEL"), "console", "query-smoketest")

	text := *queryFlag
	if *docFlag != "" {
		doc, err := os.ReadFile(*docFlag)
		if err != nil {
			log.Fatal().Err(err).Str("path", *docFlag).Msg("read document")
		}
		text = client.WithDocumentText(text, string(doc))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	var (
		reply string
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(*modeFlag)) {
	case "http":
		reply, err = runHTTP(ctx, text)
	case "direct":
		reply, err = runDirect(ctx, text, log)
	default:
		log.Fatal().Str("mode", *modeFlag).Msg("expected http or direct")
	}
	if err != nil {
		fmt.Printf("query ❌ (%.1fs) %v\n", time.Since(start).Seconds(), err)
		os.Exit(1)
	}
	fmt.Printf("query ✅ (%.1fs)\n%s\n", time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
}

func runHTTP(ctx context.Context, text string) (string, error) {
	d := client.NewDetails()
	for _, kv := range details {
		k, v, _ := strings.Cut(kv, "=")
		d.Set(strings.TrimSpace(k), v)
	}
	return client.New(*urlFlag).Query(ctx, text, d)
}

func runDirect(ctx context.Context, text string, log zerolog.Logger) (string, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return "", fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(nil)
	if err != nil {
		return "", err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	pairs := make([]string, 0, len(details)*2)
	for _, kv := range details {
		k, v, _ := strings.Cut(kv, "=")
		pairs = append(pairs, strings.TrimSpace(k), v)
	}

	res := query.NewService(cfg.Agent, log).Process(ctx, query.Request{
		Query:     text,
		Details:   core.StringDetails(pairs...),
		RequestID: "smoketest",
	})
	if !res.OK() {
		return "", errors.New(res.Message())
	}
	return res.Text, nil
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

const defaultQuery = "In general terms, what makes a residential lease agreement enforceable?"
