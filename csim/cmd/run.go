package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/monitoring"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/trace"
	"github.com/spf13/cobra"
)

const simulatorName = "Cache"

func runE(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	return simulate(cmd, cfg)
}

func simulate(cmd *cobra.Command, cfg runConfig) error {
	out := cmd.OutOrStdout()

	cacheConfig := cfg.cacheConfig()
	if err := cacheConfig.Validate(); err != nil {
		return fmt.Errorf("invalid cache configuration (%s): %w",
			cacheConfig, err)
	}

	traceFile, err := os.Open(cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer traceFile.Close()

	builder := cache.MakeBuilder().WithConfig(cacheConfig)

	if cfg.Verbose {
		builder = builder.WithHook(trace.NewLogTracer(log.New(out, "", 0)))
	}

	var (
		csvFile   *os.File
		csvTracer *trace.CSVTracer
	)

	if cfg.CSVPath != "" {
		csvFile, err = os.Create(cfg.CSVPath)
		if err != nil {
			return fmt.Errorf("creating csv trace: %w", err)
		}
		defer csvFile.Close()

		csvTracer, err = trace.NewCSVTracer(csvFile)
		if err != nil {
			return fmt.Errorf("writing csv trace: %w", err)
		}

		builder = builder.WithHook(csvTracer)
	}

	var recorder datarecording.DataRecorder
	if cfg.RecordPath != "" {
		recorder, err = datarecording.New(cfg.RecordPath)
		if err != nil {
			return err
		}
		defer recorder.Close()

		builder = builder.WithHook(trace.NewDBTracer(recorder))
	}

	sim, err := builder.Build(simulatorName)
	if err != nil {
		return err
	}

	var monitor *monitoring.Monitor
	if cfg.Monitor {
		monitor, err = startMonitor(sim, cfg)
		if err != nil {
			return err
		}
	}

	var traceInput io.Reader = traceFile
	if monitor != nil {
		traceInput = trackTraceProgress(monitor, traceFile)
	}

	stats, err := sim.Run(trace.NewReader(traceInput))
	if err != nil {
		return err
	}

	if csvTracer != nil {
		if err := finishCSVTrace(csvTracer, csvFile); err != nil {
			return err
		}
	}

	if err := writeReport(out, cfg, sim, stats, recorder); err != nil {
		return err
	}

	if monitor != nil {
		waitForInterrupt(cmd)
	}

	return nil
}

func startMonitor(
	sim *cache.Simulator,
	cfg runConfig,
) (*monitoring.Monitor, error) {
	monitor := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
	monitor.RegisterSimulator(sim)

	url, err := monitor.StartServer()
	if err != nil {
		return nil, err
	}

	if cfg.OpenBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return monitor, nil
}

// finishCSVTrace writes the buffered rows and closes the file.
func finishCSVTrace(tracer *trace.CSVTracer, file io.Closer) error {
	if err := tracer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("writing csv trace: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing csv trace: %w", err)
	}

	return nil
}

// trackTraceProgress shows how much of the trace file has been read.
func trackTraceProgress(
	monitor *monitoring.Monitor,
	traceFile *os.File,
) io.Reader {
	var total uint64
	if info, err := traceFile.Stat(); err == nil {
		total = uint64(info.Size())
	}

	bar := monitor.CreateProgressBar("trace bytes", total)

	return bar.TrackReader(traceFile)
}

func writeReport(
	out io.Writer,
	cfg runConfig,
	sim *cache.Simulator,
	stats cache.Statistics,
	recorder datarecording.DataRecorder,
) error {
	var err error
	if cfg.JSON {
		err = report.WriteJSON(out, sim.Config(), stats)
	} else {
		err = report.WriteSummary(out, stats)
	}

	if err != nil {
		return err
	}

	if cfg.ResultsFile != "" {
		if err := report.SaveResults(cfg.ResultsFile, stats); err != nil {
			return err
		}
	}

	if recorder != nil {
		report.RecordSummary(recorder, sim.Name(), sim.Config(), stats)
	}

	return nil
}

func waitForInterrupt(cmd *cobra.Command) {
	fmt.Fprintln(os.Stderr,
		"Simulation finished. Press Ctrl+C to stop the monitoring server.")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	<-ctx.Done()
}
