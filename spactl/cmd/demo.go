package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubium/spacore/network"
	"github.com/cubium/spacore/spa"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run both sensors, the median filter and the actuator in-process.",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	flags := demoCmd.Flags()
	flags.Duration("period", 0, "Publish period. Defaults to SPA_TICK_PERIOD.")
	flags.Duration("duration", 0, "Stop after this long. 0 runs until interrupted.")
	flags.Bool("monitor", false, "Serve the HTTP monitor.")
	flags.Int("monitor-port", 0, "Port of the HTTP monitor.")
	flags.Bool("open-browser", false, "Open the monitor in a browser.")
	flags.Bool("record", false, "Record the message trace to SQLite.")
	flags.String("record-path", "", "Trace database path, without suffix.")
	flags.Bool("sequential-ids", false,
		"Use sequential instead of globally unique trace ids.")
}

func runDemo(cmd *cobra.Command, _ []string) (err error) {
	flags := cmd.Flags()

	period := cfg.TickPeriod
	if flags.Changed("period") {
		period, _ = flags.GetDuration("period")
	}

	monitorOn := cfg.Monitor
	if flags.Changed("monitor") {
		monitorOn, _ = flags.GetBool("monitor")
	}

	monitorPort := cfg.MonitorPort
	if flags.Changed("monitor-port") {
		monitorPort, _ = flags.GetInt("monitor-port")
	}

	recordOn := cfg.Record
	if flags.Changed("record") {
		recordOn, _ = flags.GetBool("record")
	}

	recordPath := cfg.RecordPath
	if flags.Changed("record-path") {
		recordPath, _ = flags.GetString("record-path")
	}

	if seq, _ := flags.GetBool("sequential-ids"); seq {
		spa.UseSequentialIDGenerator()
	}

	b := network.MakeBuilder().
		WithManagerAddress(cfg.ManagerAddress).
		WithQueueSize(cfg.QueueSize).
		WithLogger(logger)

	if monitorOn {
		b = b.WithMonitorPort(monitorPort)
	} else {
		b = b.WithoutMonitoring()
	}

	if recordOn {
		b = b.WithRecordPath(recordPath)
	} else {
		b = b.WithoutRecording()
	}

	n := b.Build()
	defer func() { err = multierr.Append(err, n.Close()) }()

	for _, kind := range componentKinds {
		c, buildErr := buildComponent(
			kind, n.Connect(addressOf(kind)), n.Clock(), logger)
		if buildErr != nil {
			return buildErr
		}

		n.RegisterComponent(c)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d, _ := flags.GetDuration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if open, _ := flags.GetBool("open-browser"); open && monitorOn {
		go openWhenServing(ctx, n)
	}

	logger.Info("demo started",
		zap.Duration("period", period),
		zap.String("network", n.ID()))

	return n.Run(ctx, period)
}

func openWhenServing(ctx context.Context, n *network.Network) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if url := n.MonitorURL(); url != "" {
				if err := n.Monitor().OpenBrowser(url); err != nil {
					logger.Warn("cannot open browser", zap.Error(err))
				}

				return
			}
		}
	}
}
