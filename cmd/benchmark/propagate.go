package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/observerparty/observer"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const (
	widthsKey  = "widths"
	heightsKey = "heights"
	itersKey   = "iters"
)

type propagateResult struct {
	width, height int
	calc          *tachymeter.Metrics
	watcherRuns   float64
	flushes       float64
}

func propagate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	stop, err := startProfile(cmd)
	if err != nil {
		return err
	}
	defer stop()

	iters := int(cmd.Int(itersKey))
	if iters < 1 {
		return fmt.Errorf("--%s must be positive", itersKey)
	}

	log.Printf("warming up")
	if _, err := runPropagate(cfg, 10, 10, iters); err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetTitle("observer propagate")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max", "watcher runs", "flushes"})

	for _, w := range cmd.IntSlice(widthsKey) {
		for _, h := range cmd.IntSlice(heightsKey) {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runPropagate(cfg, int(w), int(h), iters)
			if err != nil {
				return err
			}
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate: %d * %d", res.width, res.height),
				res.calc.Time.Avg,
				res.calc.Time.Min,
				res.calc.Time.P75,
				res.calc.Time.P99,
				res.calc.Time.Max,
				res.watcherRuns,
				res.flushes,
			})
		}
	}
	tbl.Render()
	return nil
}

// runPropagate builds width chains of height computed values hanging off one
// source, each chain ending in an effect, then times writes to the source
// including the flush they trigger.
func runPropagate(cfg observer.Config, width, height, iters int) (*propagateResult, error) {
	reg := prometheus.NewRegistry()
	metrics := observer.NewMetrics(observer.WithRegistry(reg), observer.WithNamespace(cfg.MetricsNamespace))

	var runErr error
	sys, err := observer.New(cfg,
		observer.WithMetrics(metrics),
		observer.WithErrorHandler(func(err error, _ *observer.Instance, info string) {
			runErr = fmt.Errorf("%s: %w", info, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	src := observer.NewRef(sys, 1)
	for i := 0; i < width; i++ {
		last := func() int { return src.Get() }
		for j := 0; j < height; j++ {
			prev := last
			c := observer.NewComputed(sys, func() int {
				return prev() + 1
			})
			last = c.Value
		}
		observer.Effect(sys, func() error {
			last()
			return nil
		})
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		src.Set(src.Peek() + 1)
		sys.Flush()
		tach.AddTime(time.Since(start))
		if runErr != nil {
			return nil, runErr
		}
	}

	return &propagateResult{
		width:       width,
		height:      height,
		calc:        tach.Calc(),
		watcherRuns: counterTotal(reg, prometheus.BuildFQName(cfg.MetricsNamespace, "", "watcher_runs_total")),
		flushes:     counterTotal(reg, prometheus.BuildFQName(cfg.MetricsNamespace, "", "flushes_total")),
	}, nil
}

func counterTotal(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}
