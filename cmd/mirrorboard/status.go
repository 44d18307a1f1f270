package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard/health"
	"github.com/jpalmerr/mirrorboard/internal/poller"
)

// statusCmd fetches the status once and prints the derived view.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the target's status once and print it",
	Long: `Fetch the target's status once and print the derived health view.

Exit codes:
  0 - Status fetched (any health with --strict unset)
  1 - Status could not be fetched, or --strict and the pill is not healthy

Example:
  mirrorboard status --url http://localhost:8000
  mirrorboard status -c config.yaml --strict
  mirrorboard status --url http://localhost:8000 --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	targetFlags(statusCmd)
	statusCmd.Flags().Bool("strict", false, "exit non-zero unless the pill is healthy")
	statusCmd.Flags().Bool("json", false, "print the view-model as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	r, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	strict, _ := cmd.Flags().GetBool("strict")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view, result, err := fetchOnce(ctx, r)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else {
		printView(out, r.title, r.target.StatusURL(), view, result.Latency)
	}

	if result.Err != nil {
		return fmt.Errorf("status unavailable: %w", result.Err)
	}
	if strict && !view.Pill.OK {
		return fmt.Errorf("status is %s", view.Pill.Label)
	}
	return nil
}

// fetchOnce runs a single refresh through a poll session and returns what
// it rendered.
func fetchOnce(ctx context.Context, r resolved) (health.ViewModel, poller.Result, error) {
	client := newClient(r.target)
	defer client.Close()

	var view health.ViewModel
	var result poller.Result
	session := poller.NewSession(poller.SessionConfig{
		Client:   client,
		Sink:     poller.SinkFunc(func(v health.ViewModel) { view = v }),
		Logger:   discardLogger(),
		Observer: func(res poller.Result) { result = res },
	})
	defer session.Teardown()

	session.Refresh(ctx)
	if result.AttemptID == "" {
		return view, result, errors.New("status check cancelled")
	}
	return view, result, nil
}

// printView writes a colored rendering of v.
func printView(w io.Writer, title, url string, v health.ViewModel, latency time.Duration) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	pill := color.New(color.Bold, color.FgRed).Sprint(v.Pill.Label)
	if v.Pill.OK {
		pill = color.New(color.Bold, color.FgGreen).Sprint(v.Pill.Label)
	}

	fmt.Fprintf(w, "\n%s %s  %s\n", cyan("◆"), bold(title), pill)
	fmt.Fprintf(w, "  %s %s\n\n", faint(url), faint(fmt.Sprintf("(%dms)", latency.Milliseconds())))

	h := v.Header
	fmt.Fprintf(w, "  Uptime %s   Scrolls %s   LLM %s   Model %s\n\n",
		bold(h.Uptime), bold(h.Scrolls), bold(h.LLM), bold(h.Model))

	printFields(w, "Requests", v.Requests)
	printFields(w, "Safeguards", v.Safeguards)
	printFields(w, "Cadence", v.Cadence)
	if v.Env != "" {
		fmt.Fprintf(w, "  %s\n\n", faint(v.Env))
	}

	nodes := make([]string, 0, len(health.FlowNodes))
	for _, node := range health.FlowNodes {
		nodes = append(nodes, stateSprint(v.FlowState(node))(node))
	}
	fmt.Fprintf(w, "  %s\n\n", strings.Join(nodes, faint(" → ")))

	if v.Diagnostic != "" {
		fmt.Fprintf(w, "  %s %s\n\n", color.RedString("✗"), v.Diagnostic)
		return
	}
	for _, m := range v.Modules {
		fmt.Fprintf(w, "  %s %-20s %s\n", stateSprint(m.State)(stateMark(m.State)), m.Name, faint(m.Description))
	}
	fmt.Fprintln(w)
}

func printFields(w io.Writer, title string, fields []health.Field) {
	fmt.Fprintf(w, "  %s\n", color.New(color.Bold).Sprint(title))
	if len(fields) == 0 {
		fmt.Fprintf(w, "    %s\n", health.Placeholder)
	}
	for _, f := range fields {
		fmt.Fprintf(w, "    %-22s %s\n", f.Key, f.Value)
	}
	fmt.Fprintln(w)
}

func stateSprint(s health.State) func(a ...interface{}) string {
	switch s {
	case health.Healthy:
		return color.New(color.FgGreen).SprintFunc()
	case health.Failed:
		return color.New(color.FgRed).SprintFunc()
	default:
		return color.New(color.FgYellow).SprintFunc()
	}
}

func stateMark(s health.State) string {
	switch s {
	case health.Healthy:
		return "✓"
	case health.Failed:
		return "✗"
	default:
		return "~"
	}
}
