// Package main is the CLI entry point for timewarden.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/timewarden/internal/collector"
	"github.com/eliteGoblin/timewarden/internal/config"
	"github.com/eliteGoblin/timewarden/internal/daemon"
	"github.com/eliteGoblin/timewarden/internal/domain"
	"github.com/eliteGoblin/timewarden/internal/notify"
	"github.com/eliteGoblin/timewarden/internal/schedule"
	"github.com/eliteGoblin/timewarden/internal/session"
	"github.com/eliteGoblin/timewarden/internal/storage"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "timewarden",
	Short: "Application usage tracker with schedule compliance",
	Long: `timewarden tracks which application you are actively using, records
usage sessions, and checks them against schedules you define
("be in my editor on weekday mornings"). When you drift off an active
schedule it raises a desktop notification, after a grace period and
never more than once per five minutes.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking in the foreground",
	Long: `Runs the tracker: samples the foreground application once per second,
records usage sessions, and evaluates enabled schedules.
Stop with Ctrl-C.`,
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and schedule summary",
	RunE:  runStatus,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show recent usage sessions and per-app totals",
	RunE:  runSessions,
}

var logsCmd = &cobra.Command{
	Use:   "logs <schedule-id>",
	Short: "Show recent compliance logs for a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage schedules",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a schedule",
	Long: `Adds a schedule. Example:

  timewarden schedule add --name "deep work" --start 09:00 --end 12:00 \
      --days Mon,Tue,Wed,Thu,Fri --apps Code,Goland`,
	RunE: runScheduleAdd,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE:  runScheduleList,
}

var scheduleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a schedule and its compliance logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRm,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  makeToggleRun(true),
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  makeToggleRun(false),
}

var (
	jsonOutput bool
	sinceFlag  time.Duration

	addName     string
	addStart    string
	addEnd      string
	addDays     string
	addApps     string
	addCheck    uint32
	addGrace    uint32
	addDisabled bool
)

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	sessionsCmd.Flags().DurationVar(&sinceFlag, "since", 24*time.Hour, "How far back to report")

	scheduleAddCmd.Flags().StringVar(&addName, "name", "", "Schedule name")
	scheduleAddCmd.Flags().StringVar(&addStart, "start", "", "Window start (HH:MM)")
	scheduleAddCmd.Flags().StringVar(&addEnd, "end", "", "Window end (HH:MM); earlier than start means overnight")
	scheduleAddCmd.Flags().StringVar(&addDays, "days", "", "Comma-separated days (Mon..Sun)")
	scheduleAddCmd.Flags().StringVar(&addApps, "apps", "", "Comma-separated expected app names")
	scheduleAddCmd.Flags().Uint32Var(&addCheck, "check", domain.DefaultCheckIntervalSeconds, "Check interval in seconds")
	scheduleAddCmd.Flags().Uint32Var(&addGrace, "grace", domain.DefaultGracePeriodSeconds, "Grace period in seconds")
	scheduleAddCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Create the schedule disabled")
	_ = scheduleAddCmd.MarkFlagRequired("name")
	_ = scheduleAddCmd.MarkFlagRequired("start")
	_ = scheduleAddCmd.MarkFlagRequired("end")
	_ = scheduleAddCmd.MarkFlagRequired("days")

	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRmCmd)
	scheduleCmd.AddCommand(scheduleEnableCmd)
	scheduleCmd.AddCommand(scheduleDisableCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore loads config, ensures the encryption key and opens the database.
func openStore() (*storage.Store, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	keyProvider := storage.NewFileKeyProvider(cfg.DataDir)
	key, err := storage.EnsureKey(keyProvider)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to prepare encryption key: %w", err)
	}

	store, err := storage.Open(cfg.DataDir, key)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to open database: %w", err)
	}
	return store, cfg, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	sessionizer := session.New(session.Config{
		IdleThresholdSeconds: cfg.IdleThresholdSeconds,
	}, logger)
	engine := schedule.New(logger)

	var notifier domain.Notifier = notify.NewDesktopNotifier(logger)
	if !cfg.Notifications {
		notifier = notify.NopNotifier{}
	}

	trackerConfig := daemon.DefaultTrackerConfig()
	trackerConfig.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	tracker := daemon.NewTracker(
		trackerConfig,
		collector.NewPollingCollector(logger),
		sessionizer,
		engine,
		store,
		store,
		store,
		notifier,
		logger,
	)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	fmt.Printf("timewarden tracking (data dir: %s). Ctrl-C to stop.\n", cfg.DataDir)
	if err := tracker.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("=== timewarden Status ===")
	fmt.Printf("Data dir:       %s\n", cfg.DataDir)
	fmt.Printf("Database:       %s\n", store.Path())
	fmt.Printf("Poll interval:  %ds\n", cfg.PollIntervalSeconds)
	fmt.Printf("Idle threshold: %ds\n", cfg.IdleThresholdSeconds)
	fmt.Printf("Notifications:  %v\n", cfg.Notifications)

	schedules, err := store.AllSchedules()
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	enabled := 0
	for _, s := range schedules {
		if s.Enabled {
			enabled++
		}
	}
	fmt.Printf("Schedules:      %d (%d enabled)\n", len(schedules), enabled)
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	start, err := domain.ParseTimeOfDay(addStart)
	if err != nil {
		return err
	}
	end, err := domain.ParseTimeOfDay(addEnd)
	if err != nil {
		return err
	}

	var days []domain.Weekday
	for _, part := range strings.Split(addDays, ",") {
		day, err := domain.ParseWeekday(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		days = append(days, day)
	}

	var apps []string
	for _, part := range strings.Split(addApps, ",") {
		if app := strings.TrimSpace(part); app != "" {
			if strings.Contains(app, ",") {
				return fmt.Errorf("app name %q must not contain a comma", app)
			}
			apps = append(apps, app)
		}
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.InsertSchedule(domain.Schedule{
		Name:                 addName,
		StartTime:            start,
		EndTime:              end,
		Days:                 days,
		ExpectedApps:         apps,
		CheckIntervalSeconds: addCheck,
		GracePeriodSeconds:   addGrace,
		Enabled:              !addDisabled,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created schedule %d (%s %s-%s)\n", id, addName, start, end)
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schedules, err := store.AllSchedules()
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		fmt.Println("No schedules. Add one with 'timewarden schedule add'.")
		return nil
	}

	for _, s := range schedules {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		days := make([]string, len(s.Days))
		for i, d := range s.Days {
			days[i] = d.String()
		}
		fmt.Printf("[%d] %s  %s-%s  %s  apps=%s  check=%ds grace=%ds  (%s)\n",
			s.ID, s.Name, s.StartTime, s.EndTime,
			strings.Join(days, ","), strings.Join(s.ExpectedApps, ","),
			s.CheckIntervalSeconds, s.GracePeriodSeconds, state)
	}
	return nil
}

func runScheduleRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q", args[0])
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSchedule(id); err != nil {
		return err
	}
	fmt.Printf("Deleted schedule %d\n", id)
	return nil
}

func makeToggleRun(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid schedule id %q", args[0])
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ToggleSchedule(id, enabled); err != nil {
			return err
		}
		if enabled {
			fmt.Printf("Enabled schedule %d\n", id)
		} else {
			fmt.Printf("Disabled schedule %d\n", id)
		}
		return nil
	}
}

func runSessions(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	end := time.Now()
	start := end.Add(-sinceFlag)

	sessions, err := store.SessionsInRange(start, end)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Printf("No sessions in the last %s.\n", sinceFlag)
		return nil
	}

	fmt.Printf("Sessions since %s:\n", start.Format("2006-01-02 15:04"))
	for _, s := range sessions {
		kind := "active"
		if s.IsIdle {
			kind = "idle"
		}
		fmt.Printf("  %s  %-20s %-6s %s\n",
			s.StartTime.Local().Format("15:04:05"), s.AppID, kind,
			(time.Duration(s.DurationSeconds) * time.Second).String())
	}

	totals, err := store.SessionTotals(start, end)
	if err != nil {
		return err
	}
	fmt.Println("\nTotals:")
	for app, secs := range totals {
		fmt.Printf("  %-20s %s\n", app, (time.Duration(secs) * time.Second).String())
	}
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q", args[0])
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	logs, err := store.ComplianceLogs(id, 100)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Printf("No compliance logs for schedule %d.\n", id)
		return nil
	}

	for _, log := range logs {
		app := log.CurrentApp
		if app == "" {
			app = "(no app)"
		}
		fmt.Printf("%s  compliant=%v  app=%s\n",
			log.Timestamp.Local().Format("2006-01-02 15:04:05"), log.IsCompliant, app)
	}
	return nil
}

func createLogger(cfg config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Log.Level); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{filepath.Join(cfg.DataDir, "timewarden.log")}
	zapCfg.ErrorOutputPaths = []string{filepath.Join(cfg.DataDir, "timewarden.error.log")}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("timewarden %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
