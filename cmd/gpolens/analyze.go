package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/gpolens/internal/application/analysis"
	"github.com/bryanwahyu/gpolens/internal/config"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/infra/ai"
	"github.com/bryanwahyu/gpolens/internal/infra/logging"
)

var analyzeOpts struct {
	configPath string
	base       string
	batchSize  int
	out        string
	script     string
	provider   string
	model      string
	verbose    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] FILE...",
	Short: "Analyze exported GPO reports",
	Long: `Reads exported GPO reports (XML or HTML), compares them and writes a JSON report and
a PowerShell script. With --base every report is compared against the base report only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyzeCmd,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.configPath, "config", "c", "", "config file (defaults apply when empty)")
	f.StringVar(&analyzeOpts.base, "base", "", "base GPO report for one-to-all comparison")
	f.IntVar(&analyzeOpts.batchSize, "batch-size", 0, "reports per oracle call (default from config)")
	f.StringVarP(&analyzeOpts.out, "out", "o", "gpo-report.json", "where to write the JSON report")
	f.StringVar(&analyzeOpts.script, "script", "gpo-script.ps1", "where to write the PowerShell script")
	f.StringVar(&analyzeOpts.provider, "provider", "", "openai or gemini (overrides config)")
	f.StringVar(&analyzeOpts.model, "model", "", "model name (overrides config)")
	f.BoolVarP(&analyzeOpts.verbose, "verbose", "v", false, "debug logging")
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if analyzeOpts.configPath != "" {
		var err error
		if cfg, err = config.Load(analyzeOpts.configPath); err != nil {
			return err
		}
	}
	if analyzeOpts.provider != "" {
		cfg.AI.Provider = analyzeOpts.provider
		cfg.AI.APIKey = ""
		cfg = reloadEnv(cfg)
	}
	if analyzeOpts.model != "" {
		cfg.AI.Model = analyzeOpts.model
	}

	level := "warn"
	if analyzeOpts.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	req, err := readRequest(analyzeOpts.base, args, analyzeOpts.batchSize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	oracle, err := ai.NewOracle(ctx, cfg.AI)
	if err != nil {
		return err
	}
	svc := appanalysis.NewService(oracle, logger)
	svc.Limits = analysis.Limits{MaxBatchSize: cfg.Analysis.MaxBatchSize, MaxTotalBytes: cfg.Analysis.MaxTotalBytes}
	svc.FindingSample = cfg.Analysis.FindingSample

	resp, err := analyze(ctx, svc, req, cmd.ErrOrStderr())
	if err != nil {
		return errors.New(failureMessage(err))
	}
	if err := writeOutputs(resp, analyzeOpts.out, analyzeOpts.script); err != nil {
		return err
	}
	logger.Debug("outputs written", zap.String("report", analyzeOpts.out), zap.String("script", analyzeOpts.script))
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nreport: %s\nscript: %s\n", resp.Analysis.Summary, analyzeOpts.out, analyzeOpts.script)
	return nil
}

// reloadEnv fills the API key for a provider chosen on the command line.
func reloadEnv(cfg *config.Config) *config.Config {
	switch cfg.AI.Provider {
	case "gemini":
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

func readRequest(base string, files []string, batchSize int) (analysis.Request, error) {
	req := analysis.Request{MaxBatchSize: batchSize}
	if base != "" {
		b, err := os.ReadFile(base)
		if err != nil {
			return req, err
		}
		req.BaseGPO = string(b)
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return req, err
		}
		req.ComparisonGPOs = append(req.ComparisonGPOs, string(b))
	}
	return req, nil
}

// analyze consumes the pipeline's event stream, reporting progress to w.
func analyze(ctx context.Context, svc *appanalysis.Service, req analysis.Request, w io.Writer) (*analysis.Response, error) {
	for e := range svc.Stream(ctx, req) {
		switch e.Type {
		case appanalysis.EventProgress:
			fmt.Fprintf(w, "[%d/%d] %s\n", e.Progress.Current, e.Progress.Total, e.Progress.Stage)
		case appanalysis.EventPartial:
			s := e.Partial.Analysis.Stats
			fmt.Fprintf(w, "  batch %d of %d: %d high, %d medium, %d overlaps\n",
				e.Partial.Batch, e.Partial.Total, s.HighSeverityConflicts, s.MediumSeverityConflicts, s.Overlaps)
		case appanalysis.EventDone:
			return e.Response, nil
		case appanalysis.EventFailed:
			return nil, e.Err
		}
	}
	// channel closed without a terminal event: ctx was canceled
	return nil, ctx.Err()
}

// failureMessage prefixes the user message with the phase that failed, e.g.
// "batch 2 of 3: The reports are too large...".
func failureMessage(err error) string {
	msg := analysis.UserMessage(err)
	var pe *analysis.PhaseError
	if errors.As(err, &pe) {
		return pe.Where() + ": " + msg
	}
	return msg
}

func writeOutputs(resp *analysis.Response, reportPath, scriptPath string) error {
	report, err := json.MarshalIndent(resp.Analysis, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportPath, report, 0o644); err != nil {
		return err
	}
	if scriptPath == "" {
		return nil
	}
	return os.WriteFile(scriptPath, []byte(resp.Script), 0o644)
}
