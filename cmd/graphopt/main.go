// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"graphopt/internal/errors"
	"graphopt/internal/graphtext"
	"graphopt/internal/model"
	"graphopt/internal/transforms"
)

func main() {
	defaults := transforms.DefaultOptions()
	verbosity := flag.Int("v", 0, "log verbosity (0 = quiet, 1 = info, 2 = debug)")
	maxSweeps := flag.Int("max-sweeps", defaults.MaxSweeps, "maximum number of sweeps over all transformations")
	maxRewrites := flag.Int("max-rewrites", defaults.MaxRewrites, "maximum number of rewrites in one run")
	verify := flag.Bool("verify", defaults.Verify, "check model integrity after every rewrite")
	quiet := flag.Bool("q", false, "do not print the optimized graph")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: graphopt [flags] <file.graph>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	commonlog.Configure(*verbosity, nil)

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	m, err := graphtext.Parse(path, string(source))
	if err != nil {
		fmt.Print(graphtext.FormatParseError(string(source), err))
		os.Exit(1)
	}
	operatorsBefore := m.OperatorCount()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline := transforms.NewPipeline(transforms.Options{
		MaxSweeps:   *maxSweeps,
		MaxRewrites: *maxRewrites,
		Verify:      *verify,
	}, transforms.DefaultTransformations()...)

	report, err := pipeline.Run(ctx, m)
	duration := formatDuration(time.Since(startTime))
	if err != nil {
		reporter := errors.NewErrorReporter(path)
		fmt.Print(reporter.FormatError(err))
		color.Red("Optimization failed after %s", duration)
		os.Exit(1)
	}

	if !*quiet {
		fmt.Print(graphtext.Print(m))
	}
	color.Green("Optimized %s in %s: %s -> %s operators, %s of constant data",
		path, duration,
		humanize.Comma(int64(operatorsBefore)),
		humanize.Comma(int64(m.OperatorCount())),
		humanize.Bytes(constantBytes(m)))
	fmt.Println(report)
}

// constantBytes sums the payload sizes of all constant arrays.
func constantBytes(m *model.Model) uint64 {
	var total uint64
	for _, a := range m.Arrays() {
		switch b := a.Buffer.(type) {
		case *model.FloatBuffer, *model.Int32Buffer:
			total += 4 * uint64(b.Len())
		case *model.Uint8Buffer:
			total += uint64(b.Len())
		case *model.StringBuffer:
			for _, s := range b.Data {
				total += uint64(len(s))
			}
		}
	}
	return total
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
