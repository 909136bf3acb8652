package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/reportcard/internal/docx"
	"github.com/pavelanni/reportcard/internal/handler"
	appI18n "github.com/pavelanni/reportcard/internal/i18n"
	"github.com/pavelanni/reportcard/internal/llm"
	"github.com/pavelanni/reportcard/internal/llm/prompts"
	"github.com/pavelanni/reportcard/internal/model"
	"github.com/pavelanni/reportcard/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reportcard",
		Short: "School grade aggregation and DOCX report card generation",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd(), gradesCmd(), importCmd(), templateCmd(), feedbackCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the flags every command understands.
func commonFlags(f *pflag.FlagSet) {
	f.String("db", "reportcard.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Language for subject labels and messages (en, fr)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// templateFlags registers the flags that locate and place report documents.
func templateFlags(f *pflag.FlagSet) {
	f.String("template-dir", "templates", "Directory searched for templates not stored in the database")
	f.String("template-name", docx.DefaultTemplateName, "Logical name of the report card template")
	f.StringP("output-dir", "o", "reports", "Directory for generated report cards")
}

// llmFlags registers the OpenAI-compatible endpoint flags.
func llmFlags(f *pflag.FlagSet) {
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables feedback drafting)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("feedback-tone", string(prompts.ToneFormal), "Drafted feedback tone (formal, warm, brief)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP report card server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /reports)")
	commonFlags(f)
	templateFlags(f)
	llmFlags(f)
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

	v.SetEnvPrefix("REPORTCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("reportcard")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/reportcard")
	v.AddConfigPath("/etc/reportcard")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openDeps opens the database and initializes translations, the two
// dependencies every command shares.
func openDeps(v *viper.Viper) (*store.Store, error) {
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func reportConfig(v *viper.Viper) model.ReportConfig {
	return model.ReportConfig{
		TemplateName: v.GetString("template-name"),
		OutputDir:    v.GetString("output-dir"),
		Lang:         v.GetString("lang"),
		FeedbackTone: strings.ToLower(strings.TrimSpace(v.GetString("feedback-tone"))),
	}
}

// newDrafter returns an LLM client, or nil when no endpoint is configured.
func newDrafter(v *viper.Viper, tone string) *llm.Client {
	url := v.GetString("llm-url")
	if url == "" {
		return nil
	}
	return llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), tone)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := reportConfig(v)
	var drafter llm.Drafter
	if c := newDrafter(v, cfg.FeedbackTone); c != nil {
		drafter = c
		slog.Info("feedback drafting enabled", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	h := handler.New(db, docx.DirTemplates(v.GetString("template-dir")), drafter, cfg)

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"lang", cfg.Lang,
		"template", cfg.TemplateName,
		"output_dir", cfg.OutputDir,
		"base_path", basePath,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
