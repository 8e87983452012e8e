package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/NetPo4ki/go-coord/coord"
	"github.com/NetPo4ki/go-coord/internal/config"
	"github.com/NetPo4ki/go-coord/observe/logobs"
	"github.com/NetPo4ki/go-coord/observe/prom"
	"github.com/NetPo4ki/go-coord/task"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one coordination round and verify it",
		Long: `Run spawns the configured workers and producers, joins every task, drains
the channel to end of stream and prints a summary. It exits non-zero when
the observed counter or message stream violates the expected invariants.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}
			logger := config.GetLogger(cmd.Context())

			reg := prometheus.NewRegistry()
			obs := task.MultiObserver(prom.New(reg), logobs.New(logger))

			rep, err := coord.Run(coord.Config{
				Workers:     cfg.Workers,
				Producers:   cfg.Producers,
				Messages:    cfg.Messages,
				InjectPoison: cfg.InjectPoison,
				Observer:    obs,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderReport(out, rep)
			for _, f := range rep.Failures {
				logger.Warn("task failure", "error", task.CauseOf(f).Error())
			}
			if cfg.Metrics {
				if err := writeMetrics(out, reg); err != nil {
					return err
				}
			}
			if err := rep.Verify(); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("workers", 0, "Number of counter-increment tasks")
	cmd.Flags().Int("producers", 0, "Number of producer tasks")
	cmd.Flags().Int("messages", 0, "Messages sent by each producer")
	cmd.Flags().Bool("inject-poison", false, "Add a task that panics while holding the counter lock")
	cmd.Flags().Bool("metrics", false, "Print Prometheus metrics after the run")
	return cmd
}

func renderReport(w io.Writer, rep *coord.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"counter", rep.Counter})
	t.AppendRow(table.Row{"messages sent", rep.Sent})
	t.AppendRow(table.Row{"messages received", len(rep.Received)})
	t.AppendRow(table.Row{"task failures", len(rep.Failures)})
	t.AppendRow(table.Row{"lock poisoned", rep.Poisoned})
	t.AppendRow(table.Row{"elapsed", rep.Elapsed.String()})

	producers := make([]int, 0, len(rep.PerProducer))
	for p := range rep.PerProducer {
		producers = append(producers, p)
	}
	sort.Ints(producers)
	if len(producers) > 0 {
		t.AppendSeparator()
		for _, p := range producers {
			t.AppendRow(table.Row{"producer " + strconv.Itoa(p), len(rep.PerProducer[p])})
		}
	}
	t.Render()
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
