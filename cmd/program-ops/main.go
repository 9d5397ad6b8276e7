// Command program-ops runs the program's maintenance jobs once from the command line.
//
//	program-ops backfill          bootstrap missing supplies and milestones for every enrollment
//	program-ops recompute-gating  re-apply the compliance gate to every supply
//	program-ops overdue           mark lapsed milestones OVERDUE, then evaluate every organization
//	program-ops reminders         hand due compliance reminders to the notifier
//	program-ops evaluate          evaluate one organization (-org) or all of them
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/services"
	"supplement-program-api/utils"

	"go.uber.org/zap"
)

func main() {
	var (
		todayRaw   string
		orgID      uint
		trigger    string
		lockPrefix string
	)

	flag.StringVar(&todayRaw, "today", "", "run the overdue sweep as of this date (YYYY-MM-DD, optional)")
	flag.UintVar(&orgID, "org", 0, "organization id for evaluate (0 = all)")
	flag.StringVar(&trigger, "trigger", "cli", "trigger source label stored in sweep_runs")
	flag.StringVar(&lockPrefix, "lock-prefix", "", "override JOB_LOCK_PREFIX for this run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] backfill|recompute-gating|overdue|reminders|evaluate\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Log.FilePath = ""
	logger, _ := config.InitLogging(cfg.Log)
	defer logger.Sync()

	db, err := config.InitDB(cfg.Database, cfg.Log.Environment)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}

	opts, err := services.ProgramOptionsFromConfig(cfg.Program, logger)
	if err != nil {
		logger.Fatal("invalid program config", zap.Error(err))
	}

	var today time.Time
	if todayRaw != "" {
		if today, err = utils.ParseDate(todayRaw); err != nil {
			logger.Fatal("invalid -today", zap.Error(err))
		}
	}
	if lockPrefix != "" {
		cfg.Program.JobLockPrefix = lockPrefix
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier services.Notifier
	if command == "reminders" {
		if notifier, err = services.NewNotifier(ctx, cfg, logger); err != nil {
			logger.Fatal("notifier unavailable", zap.Error(err))
		}
	}
	program := services.NewProgram(db, opts, notifier, cfg.Notify.PublicBaseURL, false)
	services.RegisterProgramJobs(program.Scheduler, program, cfg.Program)

	var summary interface{}
	switch command {
	case "backfill":
		summary, err = program.Enrollments.BackfillAll(ctx)
	case "recompute-gating":
		summary, err = program.Compliance.RecomputeGating(ctx)
	case "overdue":
		if today.IsZero() {
			summary, err = program.Scheduler.RunNow(ctx, services.JobMilestonesOverdue, trigger)
		} else {
			summary, err = services.RunOverdueSweep(ctx, program.Milestones, program.Enforcement, today)
		}
	case "reminders":
		summary, err = program.Scheduler.RunNow(ctx, services.JobComplianceReminders, trigger)
	case "evaluate":
		if orgID > 0 {
			summary, err = program.Enforcement.Evaluate(ctx, orgID)
		} else {
			summary, err = program.Enforcement.EvaluateAll(ctx)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, services.ErrSweepAlreadyRunning) {
			logger.Fatal("job already running (advisory lock held)", zap.String("command", command))
		}
		logger.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
