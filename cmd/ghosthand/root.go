package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/woakley/ghosthand/internal/agent"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ghosthand",
	Short: "Ghosthand is a personal automation agent.",
	Long: `Ghosthand turns natural-language goals into step plans and executes
them through a registry of capabilities: web, files, browser, desktop,
email and user-defined skills.`,
	SilenceUsage: true,
}

// Execute runs the root command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.json", "path to the config file")
	rootCmd.AddCommand(runCmd, queueCmd, dueCmd, statusCmd, serveCmd, reauthorizeCmd, prefCmd)

	runCmd.Flags().StringVar(&runUser, "user", "", "user submitting the goal (defaults to the owner)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "plan and log without executing")
	runCmd.Flags().BoolVar(&runSpeak, "speak", false, "narrate progress through the voice command")

	queueCmd.Flags().StringVar(&queueUser, "user", "", "user the goal runs as (defaults to the owner)")
	queueCmd.Flags().StringVar(&queueAt, "at", "", "run once at this time (2006-01-02T15:04:05)")
	queueCmd.Flags().IntVar(&queueEvery, "every", 0, "repeat every N minutes")

	statusCmd.Flags().IntVar(&statusLimit, "limit", 5, "number of recent goals to show")

	prefCmd.Flags().StringVar(&prefUser, "user", "", "user the preference belongs to (defaults to the owner)")
}

var (
	runUser   string
	runDryRun bool
	runSpeak  bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal immediately",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		user := runUser
		if user == "" {
			user = app.Config.App.Owner
		}

		results := app.Runner.RunGoal(cmd.Context(), agent.Goal{
			Text:   strings.Join(args, " "),
			User:   user,
			DryRun: runDryRun,
			Speak:  runSpeak,
		})
		for i, r := range results {
			if r == nil {
				fmt.Printf("step %d: (skipped)\n", i)
				continue
			}
			fmt.Printf("step %d: %v\n", i, r)
		}
		return nil
	},
}

var (
	queueUser  string
	queueAt    string
	queueEvery int
)

var queueCmd = &cobra.Command{
	Use:   "queue <goal>",
	Short: "Schedule a goal for later",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		goal := strings.Join(args, " ")
		user := queueUser
		if user == "" {
			user = app.Config.App.Owner
		}

		if queueEvery > 0 {
			if err := app.Scheduler.EnqueueRepeat(goal, user, queueEvery); err != nil {
				return err
			}
			fmt.Printf("queued %q every %d minutes\n", goal, queueEvery)
			return nil
		}

		runAt := time.Now()
		if queueAt != "" {
			runAt, err = parseWhen(queueAt)
			if err != nil {
				return err
			}
		}
		if err := app.Scheduler.Enqueue(goal, user, runAt, 0); err != nil {
			return err
		}
		fmt.Printf("queued %q for %s\n", goal, runAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func parseWhen(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Run every queued goal that is due",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		n := app.Scheduler.RunDue(cmd.Context())
		fmt.Printf("ran %d due goal(s)\n", n)
		return nil
	},
}

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent goals, queue size and known users",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		goals, err := app.Store.RecentGoals(statusLimit, "")
		if err != nil {
			return err
		}
		fmt.Println("Recent goals:")
		if len(goals) == 0 {
			fmt.Println("  (none)")
		}
		for _, g := range goals {
			fmt.Printf("  %s  [%s]  %s -> %s\n", g.Timestamp, g.User, g.Goal, g.Result)
		}

		rejections, err := app.Store.RecentRejections(statusLimit)
		if err != nil {
			return err
		}
		if len(rejections) > 0 {
			fmt.Println("Recent rejections:")
			for _, r := range rejections {
				fmt.Printf("  %s  [%s]  %s (%s)\n", r.Timestamp, r.User, r.Goal, r.Reason)
			}
		}

		size, err := app.Store.QueueSize()
		if err != nil {
			return err
		}
		fmt.Printf("Queued goals: %d\n", size)
		fmt.Printf("Capabilities: %s\n", strings.Join(app.Registry.Names(), ", "))

		users, err := app.Store.ListUsers()
		if err != nil {
			return err
		}
		fmt.Printf("Known users: %s\n", strings.Join(users, ", "))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent: HTTP bridge, scheduler and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.PrintBanner()
		observability.InitializeTerminal()
		defer observability.CleanupTerminal()

		// Route all log output through the terminal mutex so it never
		// interrupts the dashboard's cursor save/restore sequence.
		log.SetOutput(observability.NewTermWriter())

		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Lock.Initialize(app.Config.App.Owner); err != nil {
			return fmt.Errorf("initialize lock: %w", err)
		}
		if err := app.Lock.Verify(); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go app.Scheduler.Start(ctx, time.Minute)

		go func() {
			ticker := time.NewTicker(1 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					observability.PrintLiveStatus()
				}
			}
		}()

		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					observability.Heartbeat()
					app.Logger.LogHeartbeat()
				}
			}
		}()

		engine := server.New(app.Runner, app.Store, app.enroll, app.Logger)
		addr := fmt.Sprintf(":%d", app.Config.Server.Port)
		go func() {
			if err := engine.Run(addr); err != nil {
				log.Printf("bridge stopped: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		time.Sleep(500 * time.Millisecond)
		return nil
	},
}

var prefUser string

var prefCmd = &cobra.Command{
	Use:   "pref <category> <key> [value]",
	Short: "Read or set a planning preference (e.g. comms default_recipient)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		user := prefUser
		if user == "" {
			user = app.Config.App.Owner
		}
		category, key := args[0], args[1]

		if len(args) == 2 {
			value, ok := app.Store.GetPreference(user, category, key)
			if !ok {
				return fmt.Errorf("no preference %s/%s for %s", category, key, user)
			}
			fmt.Println(value)
			return nil
		}

		if err := app.Store.SetPreference(user, category, key, args[2]); err != nil {
			return err
		}
		fmt.Printf("set %s/%s for %s\n", category, key, user)
		return nil
	},
}

var reauthorizeCmd = &cobra.Command{
	Use:   "reauthorize",
	Short: "Re-verify the owner and refresh the integrity lock",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		return app.enroll(cmd.Context())
	},
}

// enroll verifies the owner's identity and (re)establishes the
// integrity lock. Used by the reauthorize command and the bridge's
// enrollment endpoint.
func (a *App) enroll(ctx context.Context) error {
	owner := a.Config.App.Owner
	ok, err := a.Verifier.Verify(ctx, owner)
	if err != nil {
		return fmt.Errorf("verify %s: %w", owner, err)
	}
	if !ok {
		return fmt.Errorf("verification failed for %s", owner)
	}
	if err := a.Lock.Initialize(owner); err != nil {
		return err
	}
	if err := a.Lock.Verify(); err != nil {
		return err
	}
	fmt.Printf("owner %s verified, lock is intact\n", owner)
	return nil
}
