package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adalundhe/loom/core/orchestrator"
	"github.com/adalundhe/loom/core/task"
	"github.com/spf13/cobra"
)

var (
	runWorkers  int
	runAgents   []string
	runPriority int
	runRequire  string
	runCompound bool
	runWait     time.Duration
	runVerbose  bool
)

var runCmd = &cobra.Command{
	Use:   "run [task description]...",
	Short: "Route and execute tasks on a swarm of agents",
	Long: `Spawn a swarm of preset agents, enqueue the given task descriptions,
and run them through the worker pool until every task reaches a terminal
state.

Examples:
  loom run "Debug the login handler"
  loom run --agents code,research "Fix the race" "Summarize the RFC"
  loom run --compound "Research sorting and then implement it"
  loom run --require code --priority 8 "Refactor the parser"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "Worker count (0 uses config)")
	runCmd.Flags().StringSliceVarP(&runAgents, "agents", "a", []string{"research", "code", "creative", "analysis"}, "Preset agent kinds to spawn")
	runCmd.Flags().IntVarP(&runPriority, "priority", "p", task.DefaultPriority, "Task priority (0-10, higher first)")
	runCmd.Flags().StringVarP(&runRequire, "require", "r", "", "Required agent type for all tasks")
	runCmd.Flags().BoolVar(&runCompound, "compound", false, "Decompose each description into subtasks")
	runCmd.Flags().DurationVar(&runWait, "wait", 2*time.Minute, "Maximum time to wait for completion")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output")
}

// runOutput is the JSON output for the run command.
type runOutput struct {
	Tasks  []task.Snapshot     `json:"tasks"`
	Status orchestrator.Status `json:"status"`
}

func runRun(cmd *cobra.Command, args []string) error {
	logLevel := slog.LevelWarn
	if runVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch, cfg, err := buildOrchestrator(ctx, logger)
	if err != nil {
		return err
	}
	defer orch.Close()

	for _, kind := range runAgents {
		if _, err := orch.SpawnAgent(ctx, kind, ""); err != nil {
			return fmt.Errorf("spawn %s agent: %w", kind, err)
		}
	}

	ids := make([]string, 0, len(args))
	for _, description := range args {
		if runCompound {
			subIDs, err := orch.AddCompoundTask(ctx, description, runPriority, runRequire)
			if err != nil {
				return fmt.Errorf("add compound task: %w", err)
			}
			ids = append(ids, subIDs...)
			continue
		}
		id, err := orch.AddTask(ctx, description, runPriority, runRequire)
		if err != nil {
			return fmt.Errorf("add task: %w", err)
		}
		ids = append(ids, id)
	}

	if err := orch.StartWorkers(runWorkers); err != nil {
		return err
	}

	snapshots, waitErr := waitForTasks(ctx, orch, ids, runWait)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Pool.StopTimeout)
	defer stopCancel()
	if err := orch.StopWorkers(stopCtx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "stop workers: %v\n", err)
	}

	output := runOutput{Tasks: snapshots, Status: orch.GetStatus()}
	if rootJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return err
		}
	} else {
		printRunOutput(cmd.OutOrStdout(), output)
	}
	return waitErr
}

// waitForTasks polls until every task is terminal or interrupted, the
// deadline passes, or ctx is cancelled. It always returns the latest
// snapshots it has.
func waitForTasks(ctx context.Context, orch *orchestrator.Orchestrator, ids []string, wait time.Duration) ([]task.Snapshot, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	snapshots := make([]task.Snapshot, len(ids))
	for {
		settled := true
		for i, id := range ids {
			snap, err := orch.GetTask(id)
			if err != nil {
				return snapshots, err
			}
			snapshots[i] = snap
			if !snap.Status.Terminal() && snap.Status != task.StatusInterrupted {
				settled = false
			}
		}
		if settled {
			return snapshots, nil
		}
		if time.Now().After(deadline) {
			return snapshots, fmt.Errorf("timed out after %v waiting for %d tasks", wait, len(ids))
		}

		select {
		case <-ctx.Done():
			return snapshots, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printRunOutput(w io.Writer, output runOutput) {
	fmt.Fprintf(w, "%s%sTasks%s\n", colorBold, colorCyan, colorReset)
	for _, snap := range output.Tasks {
		fmt.Fprintf(w, "  %s[%s]%s %s\n", statusColor(snap.Status), snap.Status, colorReset, snap.Description)
		if snap.AssignedAgentID != "" {
			fmt.Fprintf(w, "    %sagent:%s %s\n", colorGray, colorReset, snap.AssignedAgentID)
		}
		if snap.Result != "" {
			fmt.Fprintf(w, "    %sresult:%s %s\n", colorGray, colorReset, snap.Result)
		}
		if snap.Error != "" {
			fmt.Fprintf(w, "    %serror:%s %s%s%s\n", colorGray, colorReset, colorRed, snap.Error, colorReset)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sAgents%s\n", colorBold, colorCyan, colorReset)
	for _, summary := range output.Status.Agents {
		fmt.Fprintf(w, "  %s %s(%s)%s completed=%d\n", summary.ID, colorGray, summary.Kind, colorReset, summary.TasksCompleted)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%sCompleted:%s %d  %sFailed:%s %d  %sQueued:%s %d\n",
		colorGreen, colorReset, output.Status.Completed,
		colorRed, colorReset, output.Status.Failed,
		colorGray, colorReset, output.Status.QueueDepth)
}

func statusColor(status task.Status) string {
	switch status {
	case task.StatusCompleted:
		return colorGreen
	case task.StatusFailed, task.StatusCancelled:
		return colorRed
	case task.StatusInterrupted:
		return colorYellow
	default:
		return colorGray
	}
}
