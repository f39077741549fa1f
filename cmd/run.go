package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/browser"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/database"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/pipeline"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/recorder"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/review"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/verify"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4A9EFF"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Run a full optimization cycle against a live site",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimization,
}

func init() {
	runCmd.Flags().StringP("site-id", "s", "", "site identifier (defaults to the URL host)")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	siteURL := args[0]
	cfg := *agentConfig

	siteID, _ := cmd.Flags().GetString("site-id")
	if siteID == "" {
		parsed, err := url.Parse(siteURL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid site url %q", siteURL)
		}
		siteID = parsed.Host
	}

	if cfg.Build.QueueEndpoint == "" {
		return fmt.Errorf("build.queue_endpoint is not configured (set it in .speedagent/config.yaml or SPEEDAGENT_BUILD_QUEUE_ENDPOINT)")
	}

	driver, err := browser.New(cfg.Browser)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer driver.Close()

	reviewer, err := review.NewClient(cfg.Reviewer)
	if err != nil {
		return fmt.Errorf("failed to create reviewer client: %w", err)
	}

	var scorer verify.Scorer
	if cfg.Scorer.Endpoint != "" {
		scorer = verify.NewHTTPScorer(cfg.Scorer.Endpoint, cfg.Scorer.APIKey)
	} else {
		logging.Info("no scorer endpoint configured, performance uses local heuristics only")
	}

	var store agent.ReportStore
	if cfg.Storage.DatabasePath != "" {
		db, err := database.New(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open report store: %w", err)
		}
		defer db.Close()
		store = db
	}

	artifactDir := agent.RunWorkDir(cfg.Storage.WorkDir, uuid.NewString())
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	bus := agent.NewBus()
	events, cancelEvents := bus.Subscribe()
	defer cancelEvents()
	go printEvents(events)

	controller := agent.NewController(cfg, agent.Deps{
		Recorder:    recorder.New(driver, artifactDir, cfg.Browser.SettleInterval),
		Reviewer:    reviewer,
		Queue:       pipeline.NewHTTPQueue(cfg.Build.QueueEndpoint),
		Deployer:    pipeline.NewHTTPDeployer(cfg.Build.QueueEndpoint),
		Verifier: &verify.Set{
			Visual:      verify.NewVisualChecker(driver, reviewer),
			Functional:  verify.NewFunctionalChecker(driver, cfg.Browser.SettleInterval),
			Links:       verify.NewLinkChecker(),
			Performance: verify.NewPerformanceChecker(scorer, driver, cfg.Scorer.Strategy),
		},
		Registry:    agent.NewRegistry(cfg.Agent.RegistryEviction),
		Bus:         bus,
		Store:       store,
		ArtifactDir: artifactDir,
	})

	fmt.Println(headerStyle.Render("speedagent"), dimStyle.Render(siteURL))
	start := time.Now()

	report, runErr := controller.Run(context.Background(), siteID, siteURL)
	if report != nil {
		printSummary(report, time.Since(start))
	}
	return runErr
}

func printEvents(events <-chan agent.Event) {
	for ev := range events {
		switch ev.Type {
		case agent.EventPhaseChanged:
			fmt.Printf("%s %s\n", dimStyle.Render("phase"), string(ev.Phase))
		case agent.EventIterationComplete:
			fmt.Printf("%s %s\n", dimStyle.Render("iter "), ev.Message)
		}
	}
}

func printSummary(report *agent.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(headerStyle.Render("Run summary"))

	verdict := failStyle.Render(strings.ToUpper(string(report.FinalVerdict)))
	if report.FinalVerdict == review.VerdictPass {
		verdict = passStyle.Render("PASS")
	}
	fmt.Printf("  verdict     %s\n", verdict)
	fmt.Printf("  run id      %s\n", report.RunID)
	fmt.Printf("  iterations  %d\n", report.Iterations)
	fmt.Printf("  pages       %d\n", report.PagesCrawled)
	fmt.Printf("  elapsed     %s\n", elapsed.Round(time.Second))
	if report.EdgeURL != "" {
		fmt.Printf("  edge url    %s\n", report.EdgeURL)
	}
	if report.Error != "" {
		fmt.Printf("  error       %s\n", failStyle.Render(report.Error))
	}

	for _, iter := range report.History {
		line := fmt.Sprintf("  #%d visual %d/%d functional %d/%d links %d/%d perf %.0f",
			iter.Iteration,
			iter.Results.VisualFailures(), len(iter.Results.Visual),
			iter.Results.FunctionalFailures(), len(iter.Results.Functional),
			iter.Results.LinkFailures(), len(iter.Results.Links),
			iter.Results.AvgPerformance())
		fmt.Println(dimStyle.Render(line))
	}
}
