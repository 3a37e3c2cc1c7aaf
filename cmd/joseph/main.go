package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/joseph/internal/chat"
	"github.com/TobiSchelling/joseph/internal/config"
	"github.com/TobiSchelling/joseph/internal/database"
	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/pipeline"
	"github.com/TobiSchelling/joseph/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "joseph",
	Short:   "Business feasibility scoring and AI assistant",
	Long:    "Joseph scores business ideas under three risk appetites and answers questions through a chain of AI providers.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Provider credentials may live in a local .env file.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags("")
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err != nil && configPath != "":
			return err
		case err != nil:
			cfg = config.Default()
		default:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}
		setLogFlags(cfg.Logging.Level)
		return nil
	},
}

func setLogFlags(level string) {
	if verbose || strings.EqualFold(level, "DEBUG") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("joseph", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/joseph/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the provider chain. API keys are read from the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := pipeline.New(cfg, db).Status()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", st.Database)
		fmt.Println("Reports:")
		fmt.Printf("  Stored: %d\n", st.Stats.Reports)
		fmt.Printf("  Narratives pending: %d\n", st.Stats.PendingNarratives)
		fmt.Println("\nChat:")
		fmt.Printf("  Conversations: %d\n", st.Stats.Conversations)
		fmt.Printf("  Messages: %d\n", st.Stats.Messages)
		fmt.Println("\nProviders:")
		fmt.Printf("  Chain: %s\n", strings.Join(cfg.LLM.Chain, " -> "))
		if len(st.Providers) == 0 {
			fmt.Println("  Configured: none")
		} else {
			fmt.Printf("  Configured: %s\n", strings.Join(st.Providers, ", "))
		}
		return nil
	},
}

// --- analyze command ---

var waitNarratives bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [idea]",
	Short: "Score a business idea and store the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return runAnalyze(context.Background(), os.Stdout, pipeline.New(cfg, db), strings.Join(args, " "), waitNarratives)
	},
}

// runAnalyze scores and stores an idea. It always waits for narrative
// generation to settle so the database stays open until every narrative is
// stored; showNarratives prints the report again once they are attached.
func runAnalyze(ctx context.Context, w io.Writer, pipe *pipeline.Pipeline, idea string, showNarratives bool) error {
	res, err := pipe.Analyze(ctx, idea)
	if err != nil {
		return err
	}

	for i, step := range res.Steps {
		fmt.Fprintf(w, "Step %d/%d: %s\n", i+1, len(res.Steps), step.Name)
		if step.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", step.Err)
		} else {
			fmt.Fprintf(w, "  %s\n", step.Summary)
		}
	}

	report := &res.Report
	if !showNarratives {
		fmt.Fprintln(w)
		printReport(w, *report)
	}

	fmt.Fprintln(w, "\nWaiting for narratives...")
	<-res.Done

	if showNarratives {
		if stored := pipe.Report(report.ID); stored != nil {
			report = stored
		}
		fmt.Fprintln(w)
		printReport(w, *report)
	} else {
		fmt.Fprintf(w, "Narratives stored. Show them with: joseph reports show %s\n", report.ID)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().BoolVarP(&waitNarratives, "wait", "w", false, "Print the report with its AI narratives")
}

// --- score command ---

var (
	scoreMode string
	scoreIn   feasibility.Inputs
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score explicit inputs without storing a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode feasibility.Mode
		if scoreMode != "" {
			m, err := feasibility.ParseMode(scoreMode)
			if err != nil {
				return fmt.Errorf("%w: %s", err, scoreMode)
			}
			mode = m
		}

		results := feasibility.ComputeAll(scoreIn.Sanitize())
		for _, m := range feasibility.Modes {
			if mode != "" && m != mode {
				continue
			}
			printResult(os.Stdout, m, results[m])
		}
		return nil
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVarP(&scoreMode, "mode", "m", "", "Mode to score (Conservative, Safe, Wild); all when empty")
	f.Float64Var(&scoreIn.Risk, "risk", 50, "Risk, 0-100")
	f.Float64Var(&scoreIn.TimeValue, "time-value", 5, "Annual time value of money, percent")
	f.Float64Var(&scoreIn.ROITime, "roi-time", 18, "Months until return on investment")
	f.Float64Var(&scoreIn.LengthTimeFactor, "length", 12, "Project length factor, months")
	f.Float64Var(&scoreIn.InterestRate, "interest", 6.5, "Annual interest rate, percent")
}

// --- reports command ---

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage stored feasibility reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reports, err := db.ListReports()
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports yet. Create one with: joseph analyze \"<idea>\"")
			return nil
		}

		for _, r := range reports {
			idea := r.Idea
			if len(idea) > 60 {
				idea = idea[:60] + "..."
			}
			fmt.Printf("  %s  %s  %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), idea)
			var verdicts []string
			for _, m := range feasibility.Modes {
				res := r.Result(m)
				verdicts = append(verdicts, fmt.Sprintf("%s %d", m, res.Score))
			}
			fmt.Printf("        %s\n", strings.Join(verdicts, " | "))
		}
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a report with its narratives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetReport(args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("report %s not found", args[0])
		}
		printReport(os.Stdout, *r)
		return nil
	},
}

var assumeYes bool

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetReport(args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("report %s not found", args[0])
		}

		if !assumeYes {
			fmt.Printf("Delete report %s (%q)? [y/N]: ", r.ID, r.Idea)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.TrimSpace(strings.ToLower(answer))
			if answer != "y" && answer != "yes" {
				return fmt.Errorf("aborted")
			}
		}

		if _, err := db.DeleteReport(r.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted report %s\n", r.ID)
		return nil
	},
}

func init() {
	reportsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
}

// --- chat command ---

var chatContext string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the assistant a question in a module context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		contextID := chatContext
		if contextID == "" {
			contextID = chat.DefaultContext().ID
		}

		reply, err := pipeline.New(cfg, db).Assistant().Send(context.Background(), contextID, strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, chat.ErrUnknownContext) {
				var ids []string
				for _, c := range chat.Contexts {
					ids = append(ids, c.ID)
				}
				return fmt.Errorf("%w (available: %s)", err, strings.Join(ids, ", "))
			}
			return err
		}
		fmt.Println(reply.Content)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatContext, "context", "", "Module context ID (default economic-forecasting)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scfg := cfg.Server
		if cmd.Flags().Changed("port") {
			scfg.Port = servePort
		}
		srv := server.New(scfg, pipeline.New(cfg, db))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		fmt.Printf("Starting server at http://localhost:%d\n", scfg.Port)
		fmt.Println("Press Ctrl+C to stop")

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func printReport(w io.Writer, r feasibility.Report) {
	fmt.Fprintf(w, "Report %s\n", r.ID)
	fmt.Fprintf(w, "Idea: %s\n", r.Idea)
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	in := r.Inputs
	fmt.Fprintf(w, "Inputs: risk %.0f, time value %.1f%%, ROI %.0f months, length %.0f months, interest %.1f%%\n\n",
		in.Risk, in.TimeValue, in.ROITime, in.LengthTimeFactor, in.InterestRate)

	for _, m := range feasibility.Modes {
		res := r.Result(m)
		printResult(w, m, res)
		if res.Narrative != "" {
			for _, line := range strings.Split(res.Narrative, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		fmt.Fprintln(w)
	}
}

func printResult(w io.Writer, m feasibility.Mode, res feasibility.ModeResult) {
	fmt.Fprintf(w, "  %-12s %3d/100  %-12s  pv %.3f  rate %.2f%%  (feasible >= %d, borderline >= %d)\n",
		m, res.Score, res.Verdict, res.PVFactor, res.CombinedRate,
		res.Details.Thresholds.Feasible, res.Details.Thresholds.Borderline)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "joseph.db")
	return database.Open(dbPath)
}
