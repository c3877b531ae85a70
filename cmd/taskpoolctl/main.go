// Command taskpoolctl is a thin demo/ops harness around the taskpool
// library: start a pool from a YAML config and block on OS signals,
// submit a batch of jobs from a JSON file, or print the status of a
// freshly started in-process pool (demo only). Retargeted from the teacher's
// internal/cli (cobra root command "beaver-raft" with run/enqueue/status
// subcommands talking to a WAL-backed distributed controller) at the
// in-process Pool API only; no gRPC, no WAL, no distributed modes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	taskpool "github.com/ChuLiYu/taskpool"
	"github.com/ChuLiYu/taskpool/internal/logsink"
	"github.com/ChuLiYu/taskpool/internal/metrics"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

func main() {
	if err := buildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskpoolctl",
		Short: "Run and inspect an in-process taskpool",
	}
	root.AddCommand(runCmd(), submitCmd(), statusCmd())
	return root
}

func runCmd() *cobra.Command {
	var configPath string
	var demoJobs int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a pool from a YAML config and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			opts := cfg.poolOptions()
			opts = append(opts, taskpool.WithLogger(logsink.NewSlog(nil)))

			var collector *metrics.Collector
			if cfg.Metrics.Enabled {
				collector = metrics.NewCollector(nil)
				opts = append(opts, taskpool.WithMetrics(collector))
			}

			pool, err := taskpool.New(opts...)
			if err != nil {
				return fmt.Errorf("constructing pool: %w", err)
			}
			if err := pool.Start(); err != nil {
				return fmt.Errorf("starting pool: %w", err)
			}

			if cfg.Metrics.Enabled {
				go func() {
					if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
						fmt.Fprintln(os.Stderr, "metrics server:", err)
					}
				}()
			}

			for i := 0; i < demoJobs; i++ {
				i := i
				if _, err := pool.SubmitWithValue(func(ctx context.Context) (any, error) {
					return i, nil
				}); err != nil {
					fmt.Fprintln(os.Stderr, "submit:", err)
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pool.WaitAll(ctx)
			return pool.Dispose()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/default.yaml", "path to YAML config")
	cmd.Flags().IntVar(&demoJobs, "demo-jobs", 0, "submit N no-op demo jobs at startup")
	return cmd
}

// batchEntry is one element of the JSON array the `submit` command reads:
// a named no-op placeholder, since the CLI has no way to accept an
// arbitrary callable from a file. Demonstrates options plumbing end to
// end without inventing a scripting language.
type batchEntry struct {
	Name       string `json:"name"`
	Priority   string `json:"priority"`
	MaxRetries int    `json:"max_retries"`
}

func submitCmd() *cobra.Command {
	var configPath string
	var batchPath string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a batch of jobs described by a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			data, err := os.ReadFile(batchPath)
			if err != nil {
				return fmt.Errorf("reading batch file: %w", err)
			}
			var batch []batchEntry
			if err := json.Unmarshal(data, &batch); err != nil {
				return fmt.Errorf("parsing batch file: %w", err)
			}

			pool, err := taskpool.New(cfg.poolOptions()...)
			if err != nil {
				return err
			}
			if err := pool.Start(); err != nil {
				return err
			}
			defer pool.Dispose()

			for _, entry := range batch {
				opts := []job.Option{job.WithName(entry.Name)}
				if entry.MaxRetries > 0 {
					opts = append(opts, job.WithMaxRetries(entry.MaxRetries))
					opts = append(opts, job.WithRetryBackoff(job.ExponentialBackoff{
						Initial: 100 * time.Millisecond,
						Max:     2 * time.Second,
					}))
				}
				opts = append(opts, job.WithPriority(parsePriority(entry.Priority)))

				id, err := pool.SubmitWithValue(func(ctx context.Context) (any, error) {
					return entry.Name, nil
				}, opts...)
				if err != nil {
					return fmt.Errorf("submitting %q: %w", entry.Name, err)
				}
				fmt.Println(id)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return pool.WaitAll(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/default.yaml", "path to YAML config")
	cmd.Flags().StringVarP(&batchPath, "file", "f", "", "path to a JSON batch file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func parsePriority(s string) job.Priority {
	switch s {
	case "critical":
		return job.Critical
	case "high":
		return job.High
	case "low":
		return job.Low
	default:
		return job.Normal
	}
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print an idle pool's status (demo only: a freshly constructed pool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := taskpool.New()
			if err != nil {
				return err
			}
			if err := pool.Start(); err != nil {
				return err
			}
			defer pool.Dispose()

			out, err := json.MarshalIndent(pool.Status(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}
