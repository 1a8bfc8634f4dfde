package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riftlabs/healwatch/internal/agentclient"
	"github.com/riftlabs/healwatch/internal/config"
	"github.com/riftlabs/healwatch/internal/domain"
	"github.com/riftlabs/healwatch/internal/notify"
	"github.com/riftlabs/healwatch/internal/runstore"
	"github.com/riftlabs/healwatch/internal/schedule"
	"github.com/riftlabs/healwatch/internal/tracker"
	"github.com/riftlabs/healwatch/tui"
	"github.com/riftlabs/healwatch/web/api"
)

var (
	runRepo    string
	runTeam    string
	runLeader  string
	tuiRepo    string
	tuiTeam    string
	tuiLeader  string
	histStatus string
	histLimit  int
	servePort  int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a repository and watch the run to completion",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runRepo, "repo", "", "repository URL to heal")
	runCmd.Flags().StringVar(&runTeam, "team", "", "team name")
	runCmd.Flags().StringVar(&runLeader, "leader", "", "leader name")
	runCmd.MarkFlagRequired("repo")
	runCmd.MarkFlagRequired("team")
	runCmd.MarkFlagRequired("leader")
	rootCmd.AddCommand(runCmd)

	// status command
	statusCmd := &cobra.Command{
		Use:   "status RUN_ID",
		Short: "Fetch the current status of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&histStatus, "status", "", "filter by status (PASSED, FAILED)")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(historyCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI dashboard",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&tuiRepo, "repo", "", "repository URL to heal")
	tuiCmd.Flags().StringVar(&tuiTeam, "team", "", "team name")
	tuiCmd.Flags().StringVar(&tuiLeader, "leader", "", "leader name")
	rootCmd.AddCommand(tuiCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web dashboard server with scheduled runs",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*runstore.Store, error) {
	return runstore.New(config.ExpandPath(cfg.General.DatabasePath))
}

func newTracker(cfg *config.Config, onChange func(tracker.State)) *tracker.Tracker {
	client := agentclient.New(cfg.Agent.BaseURL, cfg.Agent.RequestTimeout())
	return tracker.New(client, tracker.Options{
		Interval: cfg.Agent.PollInterval(),
		OnChange: onChange,
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	states := make(chan tracker.State, 16)
	tr := newTracker(cfg, func(st tracker.State) { states <- st })
	defer tr.Close()

	if err := tr.StartRun(context.Background(), runRepo, runTeam, runLeader); err != nil {
		return err
	}

	st := tr.State()
	fmt.Printf("Submitted run %s for %s (branch %s)\n",
		st.RunID, runRepo, domain.BranchName(runTeam, runLeader))

	for st = range states {
		if st.Status.Terminal() {
			break
		}
		if st.Error != "" {
			return fmt.Errorf("run %s: %s", st.RunID, st.Error)
		}
	}

	printSummary(st)

	if err := store.SaveRun(stateToRecord(st)); err != nil {
		log.Printf("saving run %s: %v", st.RunID, err)
	}
	notifier := buildNotifier(cfg)
	if err := notifier.Send(notify.ForRun(st.RunID, runRepo, st.Status, st.Score.Final)); err != nil {
		log.Printf("notification failed: %v", err)
	}

	if st.Status == domain.StatusFailed {
		os.Exit(1)
	}
	return nil
}

func printSummary(st tracker.State) {
	fmt.Printf("\nRun %s finished: %s\n", st.RunID, st.Status)
	r := st.Results
	if r == nil {
		return
	}
	fmt.Printf("  Iterations: %d/%d\n", r.IterationsUsed, r.RetryLimit)
	fmt.Printf("  Failures:   %d found, %d fixed\n", r.TotalFailures, r.TotalFixes)
	fmt.Printf("  Commits:    %d\n", r.Commits)
	fmt.Printf("  Duration:   %ds\n", r.ExecutionTimeSeconds)
	fmt.Printf("  Score:      %d (base %d, bonus %d, penalty %d)\n",
		st.Score.Final, st.Score.Base, st.Score.TimeBonus, st.Score.CommitPenalty)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := agentclient.New(cfg.Agent.BaseURL, cfg.Agent.RequestTimeout())
	report, err := client.FetchStatus(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s\n", report.RunID, report.Status)
	if report.Results != nil {
		fmt.Printf("  Iterations: %d/%d  Fixes: %d  Score: %d\n",
			report.Results.IterationsUsed, report.Results.RetryLimit,
			report.Results.TotalFixes, report.Score.Final)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.ListRuns(runstore.ListOptions{
		Status: domain.RunStatus(histStatus),
		Limit:  histLimit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tTEAM\tREPOSITORY\tSCORE\tRECORDED")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.RunID, rec.Status, rec.TeamName, rec.Repository,
			rec.Score.Final, rec.RecordedAt.Local().Format(time.RFC3339))
	}
	w.Flush()

	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	tr := newTracker(cfg, nil)
	defer tr.Close()

	model := tui.NewModel(tui.ModelConfig{
		Tracker:    tr,
		History:    store,
		RepoURL:    tuiRepo,
		TeamName:   tuiTeam,
		LeaderName: tuiLeader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notifications.SlackWebhook == "" {
		return notify.NoopNotifier{}
	}
	return notify.NewSlackNotifier(cfg.Notifications.SlackWebhook)
}

func stateToRecord(st tracker.State) runstore.Record {
	rec := runstore.Record{
		RunID:      st.RunID,
		Status:     st.Status,
		Score:      st.Score,
		Results:    st.Results,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
	if r := st.Results; r != nil {
		rec.Repository = r.Repository
		rec.TeamName = r.TeamName
		rec.LeaderName = r.LeaderName
		rec.BranchName = r.BranchName
	}
	return rec
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	slack := notify.NewSlackNotifier(cfg.Notifications.SlackWebhook)

	var server *api.Server
	tr := newTracker(cfg, func(st tracker.State) {
		server.HandleStateChange(st)
		if !st.Status.Terminal() {
			return
		}
		if err := store.SaveRun(stateToRecord(st)); err != nil {
			log.Printf("saving run %s: %v", st.RunID, err)
		}
		repo := ""
		if st.Results != nil {
			repo = st.Results.Repository
		}
		if err := slack.Send(notify.ForRun(st.RunID, repo, st.Status, st.Score.Final)); err != nil {
			log.Printf("notification failed: %v", err)
		}
	})
	defer tr.Close()

	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	server = api.NewServer(tr, store, addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("serving dashboard at http://%s", addr)
		return server.Start()
	})

	// Scheduled runs
	scheduleFile := config.ExpandPath(cfg.Schedules.File)
	if scheduleFile != "" {
		file, err := schedule.LoadFile(scheduleFile)
		if err != nil {
			return err
		}
		if len(file.Schedules) > 0 {
			sched, err := schedule.NewScheduler(file.Schedules)
			if err != nil {
				return err
			}
			// Scheduled entries never supersede a live run: the gate
			// defers them until the tracker is free.
			idle := func() bool {
				return tr.State().Status != domain.StatusRunning
			}
			g.Go(func() error {
				sched.Start(idle, func(e schedule.Entry) error {
					return runScheduled(ctx, tr, e)
				})
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				sched.Stop()
				return nil
			})
			log.Printf("loaded %d schedule(s) from %s", len(file.Schedules), scheduleFile)
		}
	}

	// Reload the Slack webhook when the config file changes on disk.
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	if _, err := os.Stat(cfgPath); err == nil {
		watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
			slack.SetWebhookURL(next.Notifications.SlackWebhook)
			log.Printf("config reloaded from %s", cfgPath)
		})
		if err != nil {
			log.Printf("config watch unavailable: %v", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	return g.Wait()
}

// runScheduled submits a recurring run and blocks until it finishes or
// another submission supersedes it.
func runScheduled(ctx context.Context, tr *tracker.Tracker, e schedule.Entry) error {
	err := tr.StartRun(ctx, e.RepoURL, e.TeamName, e.LeaderName)
	if errors.Is(err, tracker.ErrSuperseded) {
		// An operator submission won the race; the entry will fire
		// again on its next cron occurrence.
		log.Printf("schedule %s skipped, another run took over", e.Name)
		return nil
	}
	if err != nil {
		return err
	}
	runID := tr.State().RunID
	log.Printf("schedule %s started run %s", e.Name, runID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
		st := tr.State()
		if st.RunID != runID {
			return nil
		}
		if st.Status.Terminal() {
			return nil
		}
		if st.Error != "" {
			return fmt.Errorf("run %s: %s", runID, st.Error)
		}
	}
}
