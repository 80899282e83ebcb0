package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/classroom-ai/quizgen/internal/handler"
	appI18n "github.com/classroom-ai/quizgen/internal/i18n"
	"github.com/classroom-ai/quizgen/internal/insight"
	"github.com/classroom-ai/quizgen/internal/llm"
	"github.com/classroom-ai/quizgen/internal/report"
	"github.com/classroom-ai/quizgen/internal/store"
)

func main() {
	// Local development keeps API keys in a .env file; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizgen",
		Short: "AI quiz generator and classroom report builder",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("data-dir", "data", "Directory for quiz and student result files")
	f.String("gemini-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	f.String("gemini-model", llm.DefaultModel, "Gemini model name")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the PDF analysis report from recorded quiz data",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("data-dir", "data", "Directory for quiz and student result files")
	f.String("feedback", "", "Optional class feedback CSV path")
	f.StringP("output", "o", "quiz_report.pdf", "Report output path")
	f.StringP("lang", "l", "en", "Report language (en, es)")
	f.String("insight-url", "", "OpenAI-compatible API base URL for commentary")
	f.String("insight-key", "", "API key for the commentary model")
	f.String("insight-model", "", "Commentary model name (empty disables AI commentary)")
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

	v.SetEnvPrefix("QUIZGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizgen")
	v.AddConfigPath("/etc/quizgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// geminiKey resolves the API key from the flag, the prefixed env, or the
// conventional GEMINI_API_KEY variable.
func geminiKey(v *viper.Viper) string {
	if key := v.GetString("gemini-key"); key != "" {
		return key
	}
	return os.Getenv("GEMINI_API_KEY")
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	st, err := store.New(v.GetString("data-dir"))
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	ctx := context.Background()
	modelName := v.GetString("gemini-model")
	gen, err := llm.New(ctx, geminiKey(v), modelName)
	if err != nil {
		return fmt.Errorf("create generation client: %w", err)
	}
	defer gen.Close()

	h := handler.New(gen, st)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", h.Routes())

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", modelName,
		"data_dir", st.Dir(),
	)
	return http.ListenAndServe(addr, r)
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	st, err := store.New(v.GetString("data-dir"))
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var analyst report.Analyst
	if model := v.GetString("insight-model"); model != "" {
		analyst = insight.New(
			v.GetString("insight-url"),
			v.GetString("insight-key"),
			model,
		)
	} else {
		slog.Info("no commentary model configured, report will use placeholders")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return report.Generate(ctx, report.Config{
		Store:        st,
		FeedbackPath: v.GetString("feedback"),
		OutputPath:   v.GetString("output"),
		Analyst:      analyst,
		Lang:         lang,
	})
}
