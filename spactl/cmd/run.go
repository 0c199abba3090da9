package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/spa/streamconn"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:       "run <sensor-light|sensor-temp|medianfilter|actuator>",
	Short:     "Run one component connected to a subnet manager.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), validKind),
	ValidArgs: componentKinds,
	RunE:      runComponent,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("dial", "", "Manager address. Defaults to SPA_MANAGER_DIAL.")
	flags.Duration("period", 0, "Publish period. Defaults to SPA_TICK_PERIOD.")
}

func validKind(_ *cobra.Command, args []string) error {
	if !isComponentKind(args[0]) {
		return fmt.Errorf("unknown component %q, expected one of %v",
			args[0], componentKinds)
	}

	return nil
}

func runComponent(cmd *cobra.Command, args []string) (err error) {
	kind := args[0]
	flags := cmd.Flags()

	dial := cfg.ManagerDial
	if flags.Changed("dial") {
		dial, _ = flags.GetString("dial")
	}

	period := cfg.TickPeriod
	if flags.Changed("period") {
		period, _ = flags.GetDuration("period")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := logger.With(zap.String("kind", kind))

	session, err := streamconn.Dial(ctx, dial, l)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, session.Close()) }()

	c, err := buildComponent(kind, session, clock.New(), l)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-session.Done():
			l.Warn("connection to manager closed")
			cancel()
		case <-ctx.Done():
		}
	}()

	l.Info("component started",
		zap.Stringer("addr", c.Address()),
		zap.String("manager", dial))

	if err := c.Run(ctx, period); err != nil {
		return err
	}

	select {
	case <-session.Done():
		return session.Wait()
	default:
		return nil
	}
}
