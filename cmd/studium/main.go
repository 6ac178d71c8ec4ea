package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nlavrov/studium/internal/course"
	"github.com/nlavrov/studium/internal/handler"
	"github.com/nlavrov/studium/internal/ingest"
	"github.com/nlavrov/studium/internal/llm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studium",
		Short: "AI study companion for uploaded course material",
	}

	serve := serveCmd()
	root.AddCommand(serve, extractCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studium --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the study companion HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for the default endpoint)")
	f.String("llm-key", "", "API key for LLM (or set STUDIUM_LLM_KEY)")
	f.StringSlice("llm-models", nil, "Candidate model names, probed in order")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract and chunk PDF text without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExtract,
	}
	f := cmd.Flags()
	f.Int("chunk-size", ingest.DefaultChunkSize, "Words per chunk")
	f.Bool("stats-only", false, "Print chunk statistics instead of text")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studium")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studium")
	v.AddConfigPath("/etc/studium")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	apiKey := v.GetString("llm-key")
	if apiKey == "" {
		// The server still starts: every generation returns a
		// remediation hint until a key is configured.
		slog.Warn("no LLM API key configured; generation requests will fail until STUDIUM_LLM_KEY is set")
	}

	gateway := llm.New(v.GetString("llm-url"), apiKey, v.GetStringSlice("llm-models"))
	svc := course.NewService(course.NewManager(), gateway)
	h := handler.New(svc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"llm_url", v.GetString("llm-url"),
		"llm_models", v.GetStringSlice("llm-models"),
	)
	return http.ListenAndServe(addr, r)
}

func runExtract(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var docs []ingest.Document
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := ingest.ExtractPDF(data)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		docs = append(docs, ingest.Document{Name: path, Text: text})
		slog.Info("extracted file", "path", path, "words", len(strings.Fields(text)))
	}

	merged := ingest.MergeDocuments(docs)
	chunks := ingest.ChunkWords(merged, v.GetInt("chunk-size"))

	if v.GetBool("stats-only") {
		words := 0
		for _, c := range chunks {
			words += len(strings.Fields(c))
		}
		fmt.Printf("files: %d\nchunks: %d\nwords: %d\n", len(docs), len(chunks), words)
		return nil
	}

	for i, c := range chunks {
		fmt.Printf("--- chunk %d ---\n%s\n\n", i+1, c)
	}
	return nil
}
