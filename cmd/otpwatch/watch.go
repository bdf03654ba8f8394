package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/spf13/cobra"
)

type watchFlags struct {
	once   bool
	copy   bool
	reveal bool
}

func newWatchCommand(a *app) *cobra.Command {
	flags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <item-id>",
		Short: "Follow an item's code with a live countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, a, flags, args[0])
		},
	}
	cmd.Flags().BoolVar(&flags.once, "once", false, "print the first update and exit")
	cmd.Flags().BoolVarP(&flags.copy, "copy", "c", false, "copy the code to the clipboard via the terminal")
	cmd.Flags().BoolVar(&flags.reveal, "reveal", false, "show the item secret instead of a mask")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, flags *watchFlags, id string) error {
	out := cmd.OutOrStdout()
	if flags.copy && a.clipboard == nil {
		a.clipboard = osc52Clipboard{w: out}
	}
	engine, err := a.engine(nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	r, err := a.resolve(engine, id)
	if err != nil {
		return err
	}

	bridge, err := engine.NewBridge(func(s goOTP.BridgeState) {
		a.log.WithField("copied", s.Copied).WithField("revealed", s.Revealed).Debug("otpwatch: bridge state")
	})
	if err != nil {
		return err
	}
	defer bridge.Close()
	bridge.OnReveal(flags.reveal)

	updates := make(chan goOTP.Update, 1)
	display, err := engine.NewDisplay(func(u goOTP.Update) {
		// Keep only the newest update if the printer falls behind.
		select {
		case updates <- u:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- u
		}
	})
	if err != nil {
		return err
	}
	if err := display.Start(r.Secret, r.Params); err != nil {
		return fmt.Errorf("item %s: %w", id, err)
	}
	defer display.Stop()

	copied := false
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case u := <-updates:
			if flags.copy && (!copied || u.Rotated) {
				if err := bridge.OnCopy(ctx, display.ID(), u.Code); err != nil {
					return err
				}
				copied = true
			}
			line := fmt.Sprintf("%s  %s  %2ds  secret %s",
				r.Label,
				bridge.Render(goOTP.FieldOTP, u.Code),
				u.Remaining,
				bridge.Render(goOTP.FieldSensitive, r.Secret),
			)
			if flags.once {
				fmt.Fprintln(out, line)
				return nil
			}
			fmt.Fprintf(out, "\r%s", line)
		}
	}
}
