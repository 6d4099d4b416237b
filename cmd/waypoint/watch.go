package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waypoint/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the saved searches on their schedule",
		Long:  "Runs every entry of the watches section of the config on its cron schedule. With --once each watch runs a single time and the command exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{mountMCP: true})
			if err != nil {
				return err
			}
			defer a.close()

			if len(a.cfg.Watches) == 0 {
				return errors.New("no watches configured")
			}

			scheduler := watch.New(a.agent, a.log)

			if once {
				render := newRenderer(cmd)
				var errs []error
				for _, w := range a.cfg.Watches {
					out, err := scheduler.RunOnce(ctx, w)
					if err != nil {
						a.log.Error("Watch %s failed: %v", w.Name, err)
						errs = append(errs, err)
						continue
					}
					render.Outcome(out)
				}
				return errors.Join(errs...)
			}

			for _, w := range a.cfg.Watches {
				if err := scheduler.Add(w); err != nil {
					return err
				}
			}
			scheduler.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run every watch immediately and exit")
	return cmd
}
