// Package main provides ringbench, a stress/soak harness for slotring.
//
// Usage:
//
//	ringbench [flags]
//
// Flags:
//
//	-f, --config       HuJSON scenario file (flags override its fields)
//	-n, --capacity     Ring capacity
//	-w, --writes       Number of values to produce
//	-c, --consumers    Draining goroutines
//	-p, --peekers      ReadNewest goroutines
//	-t, --timeout-ms   Lock timeout in milliseconds (0 = ring default)
//	-m, --metrics      Gather Prometheus samples into the report
//	-o, --out          Report file (atomic write); empty prints to stdout
//
// The report is JSON. A non-zero order_violations count means the FIFO
// delivery contract was broken and is always a bug.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/slotring/internal/stress"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("ringbench", flag.ContinueOnError)

	configPath := flags.StringP("config", "f", "", "HuJSON scenario `file`")
	capacity := flags.IntP("capacity", "n", 0, "ring capacity")
	writes := flags.IntP("writes", "w", 0, "number of values to produce")
	consumers := flags.IntP("consumers", "c", 0, "draining goroutines")
	peekers := flags.IntP("peekers", "p", 0, "ReadNewest goroutines")
	timeoutMillis := flags.IntP("timeout-ms", "t", 0, "lock timeout in milliseconds")
	metrics := flags.BoolP("metrics", "m", false, "gather Prometheus samples into the report")
	outPath := flags.StringP("out", "o", "", "report `file` (atomic write); empty prints to stdout")

	if err := flags.Parse(args); err != nil {
		return err
	}

	var (
		scenario stress.Scenario
		err      error
	)

	if *configPath != "" {
		scenario, err = stress.LoadScenario(*configPath)
		if err != nil {
			return err
		}
	}

	// Explicit flags win over the config file.
	if flags.Changed("capacity") {
		scenario.Capacity = *capacity
	}

	if flags.Changed("writes") {
		scenario.Writes = *writes
	}

	if flags.Changed("consumers") {
		scenario.Consumers = *consumers
	}

	if flags.Changed("peekers") {
		scenario.Peekers = *peekers
	}

	if flags.Changed("timeout-ms") {
		scenario.LockTimeoutMillis = *timeoutMillis
	}

	if flags.Changed("metrics") {
		scenario.Metrics = *metrics
	}

	logger := log.With(
		log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)),
		"ts", log.DefaultTimestampUTC,
	)

	report, err := stress.Run(logger, scenario)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	data = append(data, '\n')

	if *outPath == "" {
		_, err = os.Stdout.Write(data)

		return err
	}

	if err := atomic.WriteFile(*outPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	_ = logger.Log("msg", "report written", "path", *outPath)

	return nil
}
