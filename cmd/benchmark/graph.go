package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/observerparty/cmd/benchmark/templates"
	"github.com/delaneyj/observerparty/observer"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	scenariosKey = "scenarios"
	repeatsKey   = "repeats"
	parallelKey  = "parallel"
	reportKey    = "report"
)

type scenario struct {
	Name           string  `yaml:"name" validate:"required"`
	Width          int     `yaml:"width" validate:"gte=1"`
	TotalLayers    int     `yaml:"total_layers" validate:"gte=2"`
	StaticFraction float64 `yaml:"static_fraction" validate:"gte=0,lte=1"`
	NSources       int     `yaml:"n_sources" validate:"gte=1"`
	ReadFraction   float64 `yaml:"read_fraction" validate:"gte=0,lte=1"`
	Iterations     int     `yaml:"iterations" validate:"gte=1"`
	// ExpectedSum is checked when set.
	ExpectedSum int `yaml:"expected_sum"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios" validate:"required,dive"`
}

var defaultScenarios = []scenario{
	{Name: "simple component", Width: 10, StaticFraction: 1, NSources: 2, TotalLayers: 5, ReadFraction: 0.2, Iterations: 600_000},
	{Name: "dynamic component", Width: 10, TotalLayers: 10, StaticFraction: 0.75, NSources: 6, ReadFraction: 0.2, Iterations: 15_000},
	{Name: "large web app", Width: 1000, TotalLayers: 12, StaticFraction: 0.95, NSources: 4, ReadFraction: 1, Iterations: 7_000},
	{Name: "wide dense", Width: 1000, TotalLayers: 5, StaticFraction: 1, NSources: 25, ReadFraction: 1, Iterations: 3_000},
	{Name: "deep", Width: 5, TotalLayers: 500, StaticFraction: 1, NSources: 3, ReadFraction: 1, Iterations: 500},
	{Name: "very dynamic", Width: 100, TotalLayers: 15, StaticFraction: 0.5, NSources: 6, ReadFraction: 1, Iterations: 2_000},
}

func loadScenarios(path string) ([]scenario, error) {
	if path == "" {
		return defaultScenarios, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f scenarioFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid scenarios in %s: %w", path, err)
	}
	return f.Scenarios, nil
}

func (s scenario) title() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", s.Width, s.TotalLayers, s.NSources))
	if s.StaticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if s.ReadFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*s.ReadFraction))
	}
	return sb.String()
}

func graph(ctx context.Context, cmd *cli.Command) error {
	log.Print("Starting graph benchmark, please wait...")
	defer log.Print("Finished graph benchmark")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	scenarios, err := loadScenarios(cmd.String(scenariosKey))
	if err != nil {
		return err
	}
	stop, err := startProfile(cmd)
	if err != nil {
		return err
	}
	defer stop()

	repeats := max(int(cmd.Int(repeatsKey)), 1)
	results := make([]templates.GraphRow, len(scenarios))

	// Each scenario owns its System, so they can run side by side.
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(int(cmd.Int(parallelKey)), 1))
	for i, sc := range scenarios {
		i, sc := i, sc
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := runScenario(cfg, sc, repeats)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			results[i] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"framework", "size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "updateRate", "title",
	})
	for _, r := range results {
		table.Append([]string{
			"observer",
			r.Size,
			fmt.Sprint(r.NSources),
			fmt.Sprint(r.ReadFraction),
			fmt.Sprint(r.StaticFraction),
			humanize.Comma(int64(r.Iterations)),
			r.Name,
			fmt.Sprint(r.Duration),
			humanize.Comma(int64(r.UpdateRate)),
			r.Title,
		})
	}
	table.Render()

	if path := cmd.String(reportKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		templates.WriteGraphReport(f, cfg.MaxUpdateCount, results)
		log.Printf("Wrote report to %s", path)
	}
	return nil
}

func runScenario(cfg observer.Config, sc scenario, repeats int) (templates.GraphRow, error) {
	log.Printf("Running '%s' scenario", sc.Name)

	var runErr error
	sys, err := observer.New(cfg, observer.WithErrorHandler(func(err error, _ *observer.Instance, info string) {
		runErr = fmt.Errorf("%s: %w", info, err)
	}))
	if err != nil {
		return templates.GraphRow{}, err
	}

	counter := new(int64)
	g := makeGraph(sys, sc, counter)
	runOnce := func() int {
		return runGraph(sys, g, sc.Iterations, sc.ReadFraction)
	}
	// warm up
	runOnce()

	best := struct {
		sum      int
		count    int64
		duration time.Duration
	}{duration: time.Hour}
	for i := 0; i < repeats; i++ {
		*counter = 0
		start := time.Now()
		sum := runOnce()
		duration := time.Since(start)
		if runErr != nil {
			return templates.GraphRow{}, runErr
		}
		if duration < best.duration {
			best.duration = duration
			best.sum = sum
			best.count = *counter
		}
	}
	if sc.ExpectedSum != 0 && best.sum != sc.ExpectedSum {
		return templates.GraphRow{}, fmt.Errorf("sum %d, expected %d", best.sum, sc.ExpectedSum)
	}

	return templates.GraphRow{
		Name:           sc.Name,
		Title:          sc.title(),
		Size:           fmt.Sprintf("%dx%d", sc.Width, sc.TotalLayers),
		NSources:       sc.NSources,
		ReadFraction:   sc.ReadFraction,
		StaticFraction: sc.StaticFraction,
		Iterations:     sc.Iterations,
		Duration:       best.duration,
		Sum:            best.sum,
		Count:          best.count,
		UpdateRate:     float64(best.count) / (float64(best.duration) / float64(time.Millisecond)),
	}, nil
}

type node = *observer.Computed[int]

type layeredGraph struct {
	sources []*observer.Ref[int]
	layers  [][]node
}

// makeGraph builds TotalLayers-1 rows of computed values on top of Width
// sources. Each node sums NSources neighbours of the row below; dynamic nodes
// skip one of them depending on the first value they read.
func makeGraph(sys *observer.System, sc scenario, counter *int64) *layeredGraph {
	g := &layeredGraph{sources: make([]*observer.Ref[int], sc.Width)}
	reads := make([]func() int, sc.Width)
	for i := range g.sources {
		g.sources[i] = observer.NewRef(sys, i)
		reads[i] = g.sources[i].Get
	}

	random := rand.New(rand.NewSource(0))
	for l := 0; l < sc.TotalLayers-1; l++ {
		row := make([]node, len(reads))
		next := make([]func() int, len(reads))
		for myDex := range reads {
			mine := make([]func() int, 0, sc.NSources)
			for s := 0; s < sc.NSources; s++ {
				mine = append(mine, reads[(myDex+s)%len(reads)])
			}

			if random.Float64() < sc.StaticFraction {
				row[myDex] = observer.NewComputed(sys, func() int {
					*counter++
					sum := 0
					for _, read := range mine {
						sum += read()
					}
					return sum
				})
			} else {
				first, tail := mine[0], mine[1:]
				row[myDex] = observer.NewComputed(sys, func() int {
					*counter++
					sum := first()
					if len(tail) == 0 {
						return sum
					}
					shouldDrop := sum&0x1 > 0
					dropDex := sum % len(tail)
					for i, read := range tail {
						if shouldDrop && i == dropDex {
							continue
						}
						sum += read()
					}
					return sum
				})
			}
			next[myDex] = row[myDex].Value
		}
		g.layers = append(g.layers, row)
		reads = next
	}
	return g
}

// runGraph writes one source per iteration and reads a fixed subset of the
// leaves, returning the final sum of that subset.
func runGraph(sys *observer.System, g *layeredGraph, iterations int, readFraction float64) int {
	random := rand.New(rand.NewSource(0))
	leaves := g.layers[len(g.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - readFraction)))
	readLeaves := removeElems(leaves, skipCount, random)

	for i := 0; i < iterations; i++ {
		sourceDex := i % len(g.sources)
		g.sources[sourceDex].Set(i + sourceDex)
		sys.Flush()

		for _, leaf := range readLeaves {
			leaf.Value()
		}
	}

	sum := 0
	for _, leaf := range readLeaves {
		sum += leaf.Value()
	}
	return sum
}

func removeElems[T any](src []T, rmCount int, random *rand.Rand) []T {
	out := make([]T, len(src))
	copy(out, src)
	for i := 0; i < rmCount; i++ {
		rmDex := random.Intn(len(out))
		out[rmDex] = out[len(out)-1]
		out = out[:len(out)-1]
	}
	return out
}
