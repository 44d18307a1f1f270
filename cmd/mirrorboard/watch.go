package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard/internal/poller"
	"github.com/jpalmerr/mirrorboard/internal/tui"
)

// watchCmd runs the terminal dashboard.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live terminal dashboard",
	Long: `Show a live terminal dashboard for the target.

Polling pauses while the terminal window loses focus and resumes with an
immediate refresh when it regains focus (terminals without focus
reporting poll continuously).

Keys:
  r - refresh now
  q - quit

Example:
  mirrorboard watch --url http://localhost:8000
  mirrorboard watch -c config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	targetFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "poll interval (overrides poll_interval)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	r, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		r.interval = d
	}

	// the terminal belongs to the dashboard, so logs only go out when
	// debugging and then to a file
	logger := discardLogger()
	if isDebug {
		f, err := os.OpenFile("mirrorboard-watch.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer f.Close()
		logger = newLogger(f, r.log)
	}

	client := newClient(r.target)
	defer client.Close()

	sink := tui.NewSink()
	session := poller.NewSession(poller.SessionConfig{
		Client:   client,
		Sink:     sink,
		Interval: r.interval,
		Logger:   logger,
	})
	defer session.Teardown()

	model := tui.New(tui.Config{
		Title:   r.title,
		URL:     r.target.StatusURL(),
		Control: session,
		Views:   sink.Views(),
	})

	session.Start()
	return tui.Run(model)
}
