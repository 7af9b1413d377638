package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/daemon"
	"github.com/imparable/imparable/internal/output"
)

// Serve command flags.
var (
	serveFlagAddr    string
	serveFlagNoCron  bool
	stopFlagTimeout  time.Duration
	serveFlagPIDFile string
)

// serveCmd runs the HTTP API and the daily deadline check.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled deadline check",
	Long: `Run the HTTP API and, unless disabled, the cron job that checks deadlines
(daily at 09:00 by default, see scheduler.cron).

The server stops on SIGINT, SIGTERM or SIGHUP.

Examples:
  imparable serve
  imparable serve --addr :9090
  imparable serve --no-cron`,
	RunE: runServe,
}

// statusCmd reports whether a server is running.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running",
	RunE:  runStatus,
}

// stopCmd stops a running server.
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runStop,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveFlagNoCron, "no-cron", false, "Serve the API without the scheduled check")
	rootCmd.PersistentFlags().StringVar(&serveFlagPIDFile, "pid-file", "", "PID file (default $XDG_STATE_HOME/imparable/imparable.pid)")
	stopCmd.Flags().DurationVar(&stopFlagTimeout, "timeout", 15*time.Second, "How long to wait for the server to exit")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	server := ctx.Config.Server
	if serveFlagAddr != "" {
		server.Addr = serveFlagAddr
	}
	sched := ctx.Config.Scheduler
	if serveFlagNoCron {
		sched.Enabled = false
	}

	d := daemon.New(daemon.Options{
		Server:    server,
		Scheduler: sched,
		Store:     ctx.Store,
		Checker:   ctx.Checker,
		Notifier:  ctx.Notifier,
		Location:  ctx.Location,
		Clock:     ctx.Clock,
		Version:   Version,
		PIDFile:   daemon.NewPIDFile(serveFlagPIDFile),
	})

	if !ctx.IsJSON() {
		go func() {
			<-d.Ready()
			f := ctx.CLIFormatter()
			f.Success(fmt.Sprintf("Listening on %s", d.Addr()))
			if next := d.Scheduler().NextRun(); !next.IsZero() {
				f.Muted("Next deadline check: " + next.In(ctx.Location).Format(time.RFC1123))
			}
		}()
	}
	return d.Run(cmd.Context())
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := daemon.GetStatus(daemon.NewPIDFile(serveFlagPIDFile))
	if parseFormat(flagFormat) == output.FormatJSON {
		return output.NewFormatter().JSON(status)
	}
	if status.Running {
		cmd.Printf("Server is running (PID: %d)\n", status.PID)
	} else {
		cmd.Println("Server is not running")
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	if err := daemon.Stop(daemon.NewPIDFile(serveFlagPIDFile), stopFlagTimeout); err != nil {
		return err
	}
	cmd.Println("Server stopped")
	return nil
}
