package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnquant/advisor/internal/audit"
	"github.com/vnquant/advisor/internal/engine"
	"github.com/vnquant/advisor/internal/scheduler"
	"github.com/vnquant/advisor/internal/scheduler/jobs"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/database"
	"github.com/vnquant/advisor/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or runs a registered job.

Registered jobs:
- daily_recommendation: weekdays at 16:00, after the HOSE close

Example:
  go run ./cmd/advisor scheduler start
  go run ./cmd/advisor scheduler run daily_recommendation`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  `Starts the scheduler and keeps it running until Ctrl+C.`,
	RunE:  runScheduler,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job_name]",
	Short: "Run a job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerJob,
}

var schedulerUsers []string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringSliceVar(&schedulerUsers, "users",
		[]string{"demo"}, "user ids to generate recommendations for")
}

func buildScheduler(cfg *config.Config, log *logger.Logger) (*scheduler.Scheduler, func(), error) {
	cleanup := func() {}

	// Persistence is optional for the scheduler too
	var store jobs.RecommendationStore
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect to database: %w", err)
		}
		cleanup = func() { db.Close() }
		store = audit.NewRepository(db.Pool)
	} else {
		log.Warn("DATABASE_URL not set, recommendations will not be persisted")
	}

	eng := buildEngine(cfg, log)

	sched := scheduler.New(log)
	job := jobs.NewRecommendationJob(eng, store, schedulerUsers, engine.Request{
		HorizonDays:    7,
		TopN:           3,
		ForecastSource: "stub",
	}, log)

	if err := sched.AddJob(job); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("register job: %w", err)
	}

	return sched, cleanup, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	sched, cleanup, err := buildScheduler(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.WithField("signal", sig.String()).Info("Shutdown signal received")
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	sched, cleanup, err := buildScheduler(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	jobName := args[0]
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	// RunJob is asynchronous: poll history until the run lands
	fmt.Printf("Job %s triggered\n", jobName)
	for {
		results, err := sched.History(jobName)
		if err != nil {
			return err
		}
		if len(results) > 0 {
			last := results[len(results)-1]
			if last.Success {
				fmt.Printf("Job %s completed in %s\n", jobName, last.Duration)
				return nil
			}
			return fmt.Errorf("job %s failed: %s", jobName, last.Error)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
