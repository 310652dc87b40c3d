package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/delaneyj/observerparty/observer"
	"github.com/urfave/cli/v3"
)

const (
	configKey  = "config"
	profileKey = "pprof"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure update propagation through observer watchers",
		Commands: []*cli.Command{
			{
				Name:  "propagate",
				Usage: "Time a single write fanning out through chains of computed values",
				Flags: append(commonFlags(),
					&cli.IntSliceFlag{
						Name:  widthsKey,
						Usage: "Number of parallel chains",
						Value: []int64{1, 10, 100, 1_000},
					},
					&cli.IntSliceFlag{
						Name:  heightsKey,
						Usage: "Length of each chain",
						Value: []int64{1, 10, 100, 1_000},
					},
					&cli.IntFlag{
						Name:  itersKey,
						Usage: "Writes per size",
						Value: 100,
					},
				),
				Action: propagate,
			},
			{
				Name:  "graph",
				Usage: "Run layered dependency graph scenarios",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  scenariosKey,
						Usage: "YAML file with scenarios, defaults to the built-in set",
					},
					&cli.IntFlag{
						Name:  repeatsKey,
						Usage: "Timed runs per scenario, the best one is reported",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  parallelKey,
						Usage: "Scenarios run at once",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  reportKey,
						Usage: "Write a markdown report to this path",
					},
				),
				Action: graph,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  configKey,
			Usage: "observer config YAML",
		},
		&cli.StringFlag{
			Name:  profileKey,
			Usage: "Write a CPU profile to this path",
		},
	}
}

func loadConfig(cmd *cli.Command) (observer.Config, error) {
	path := cmd.String(configKey)
	if path == "" {
		return observer.DefaultConfig(), nil
	}
	cfg, err := observer.LoadConfig(path)
	if err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// startProfile returns the func that stops profiling.
func startProfile(cmd *cli.Command) (func(), error) {
	path := cmd.String(profileKey)
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
