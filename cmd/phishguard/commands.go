package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/phishguard/risk-scoring/internal/adapters/httpapi"
	"github.com/phishguard/risk-scoring/internal/adapters/sources"
	"github.com/phishguard/risk-scoring/internal/adapters/storage"
	"github.com/phishguard/risk-scoring/internal/application"
	"github.com/phishguard/risk-scoring/internal/config"
	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/phishguard/risk-scoring/internal/domain/detection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	analyzeFile string
	analyzeText string
	mboxFile    string
	jsonOutput  bool
)

// ==========================================
// analyze
// ==========================================

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Score pasted text or email files",
	Long: `Score one input given with --file or --text. An uploaded file wins
over pasted text. Extra positional arguments are analyzed as a batch of files.
With no input at all, pasted text is read from stdin.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := serviceFromConfig(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		paths := args
		if analyzeFile != "" {
			paths = append([]string{analyzeFile}, args...)
		}
		reports, err := service.AnalyzeSource(ctx, sources.NewFileSource(paths...))
		if err != nil {
			return err
		}
		return printReports(cmd.OutOrStdout(), reports)
	}

	submission, err := singleSubmission(cmd.InOrStdin())
	if err != nil {
		return failure(err)
	}

	result, err := service.Analyze(ctx, submission.Input)
	if err != nil {
		return failure(err)
	}
	return printReports(cmd.OutOrStdout(), []application.Report{{Submission: submission, Result: &result}})
}

func singleSubmission(stdin io.Reader) (domain.Submission, error) {
	if analyzeFile != "" {
		return sources.ReadFile(analyzeFile)
	}

	text := analyzeText
	name := "pasted text"
	if text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return domain.Submission{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
		name = "stdin"
	}

	input, err := domain.FromSource(domain.SourcePastedText, []byte(text))
	if err != nil {
		return domain.Submission{}, err
	}
	return domain.Submission{Name: name, Input: input}, nil
}

// ==========================================
// scan-mbox
// ==========================================

var scanMboxCmd = &cobra.Command{
	Use:   "scan-mbox",
	Short: "Score every message of an mbox file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		service, err := serviceFromConfig(ctx)
		if err != nil {
			return err
		}

		reports, err := service.AnalyzeSource(ctx, sources.NewMboxSource(mboxFile))
		if err != nil {
			return err
		}
		return printReports(cmd.OutOrStdout(), reports)
	},
}

// ==========================================
// serve
// ==========================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service, err := buildService(ctx, cfg, application.NewMetrics(registry))
	if err != nil {
		return err
	}

	api := httpapi.NewServer(service, cfg.HTTP.MaxUploadBytes, cfg.HTTP.RequestTimeout, registry)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down HTTP API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	log.Println("HTTP API stopped")
	return nil
}

// ==========================================
// rules
// ==========================================

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rule catalog",
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the rules table and seed it with the built-in catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("database.url is not configured")
		}

		store, err := storage.NewPostgresRuleStore(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.InitSchema(ctx); err != nil {
			return err
		}
		rules := detection.DefaultRules()
		if err := store.SeedRules(ctx, rules); err != nil {
			return err
		}

		colorGreen.Fprintf(cmd.OutOrStdout(), "Seeded %d rules\n", len(rules))
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the active rule catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, rule := range catalog.Rules() {
			fmt.Fprintf(out, "%2d  %-24q %3d  %-10s %s\n", i+1, rule.Pattern, rule.Weight, rule.Category, rule.Rationale)
		}
		return nil
	},
}

// ==========================================
// output
// ==========================================

func serviceFromConfig(ctx context.Context) (*application.AnalysisService, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return buildService(ctx, cfg, nil)
}

// failure turns a pipeline error into the message shown to the user
func failure(err error) error {
	kind := domain.FailureKindOf(err)
	if kind == domain.FailureInternal {
		return err
	}
	log.Printf("Analysis failed: %v", err)
	return errors.New(domain.UserMessage(kind))
}

type reportView struct {
	Name   string                   `json:"name"`
	Result *domain.ClassifiedResult `json:"result,omitempty"`
	Error  *errorView               `json:"error,omitempty"`
}

type errorView struct {
	Kind    domain.FailureKind `json:"kind"`
	Message string             `json:"message"`
}

func printReports(out io.Writer, reports []application.Report) error {
	if jsonOutput {
		views := make([]reportView, 0, len(reports))
		for _, report := range reports {
			view := reportView{Name: report.Submission.Name, Result: report.Result}
			if report.Err != nil {
				kind := domain.FailureKindOf(report.Err)
				view.Error = &errorView{Kind: kind, Message: domain.UserMessage(kind)}
			}
			views = append(views, view)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for _, report := range reports {
		printReport(out, report)
	}
	return nil
}

func printReport(out io.Writer, report application.Report) {
	colorCyan.Fprintf(out, "%s\n", report.Submission.Name)

	if report.Err != nil {
		colorRed.Fprintf(out, "  %s\n\n", domain.UserMessage(domain.FailureKindOf(report.Err)))
		return
	}

	result := report.Result
	severity := categoryColor(result.Category).Sprint(result.Severity())
	fmt.Fprintf(out, "  Score:    %d/100  %s\n", result.Score, severity)
	fmt.Fprintf(out, "  Source:   %s\n", result.Source)
	if len(result.Rationales) == 0 {
		fmt.Fprintln(out, "  No suspicious patterns found")
	} else {
		fmt.Fprintln(out, "  Reasons:")
		for _, rationale := range result.Rationales {
			fmt.Fprintf(out, "    - %s\n", rationale)
		}
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))
}

func categoryColor(category domain.Category) *color.Color {
	switch category {
	case domain.CategorySafe:
		return colorGreen
	case domain.CategoryCaution:
		return colorYellow
	default:
		return colorRed
	}
}
