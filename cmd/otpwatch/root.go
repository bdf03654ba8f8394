package main

import (
	"fmt"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/clock"
	"github.com/MrEthical07/goOTP/cmd/otpwatch/internal/items"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

// app carries the collaborators commands share. Tests replace them.
type app struct {
	itemsPath func() (string, error)
	clock     clock.Clock
	clipboard goOTP.Clipboard
	log       *logrus.Logger
}

func newApp() *app {
	return &app{
		itemsPath: items.Path,
		clock:     clock.Real(),
		log:       logrus.New(),
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otpwatch",
		Short: "Show and verify TOTP codes",
		Long: `otpwatch derives RFC 6238 codes for the items stored in ~/.otpwatch/items.yaml
(or the file named by OTPWATCH_CONFIG).

Examples:
  # Print the current code of every item
  otpwatch code

  # Follow one item with a live countdown and copy the code
  otpwatch watch github --copy

  # Check a code, enforcing replay protection through Redis
  otpwatch verify github 123456 --redis-addr localhost:6379`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log.SetOutput(cmd.ErrOrStderr())
			if verbose {
				a.log.SetLevel(logrus.DebugLevel)
			} else {
				a.log.SetLevel(logrus.WarnLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.AddCommand(
		newCodeCommand(a),
		newWatchCommand(a),
		newVerifyCommand(a),
		newURICommand(a),
		newAddCommand(a),
	)
	return cmd
}

func (a *app) loadItems() (*items.File, string, error) {
	path, err := a.itemsPath()
	if err != nil {
		return nil, "", fmt.Errorf("failed to determine item file path: %w", err)
	}
	f, err := items.Load(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// resolve loads item id and resolves its parameters through engine.
func (a *app) resolve(engine *goOTP.Engine, id string) (items.Resolved, error) {
	f, _, err := a.loadItems()
	if err != nil {
		return items.Resolved{}, err
	}
	it, err := f.Get(id)
	if err != nil {
		return items.Resolved{}, err
	}
	return it.Resolve(engine.Params)
}

// engine builds a stateless engine on the app clock. configure may adjust the
// builder before Build.
func (a *app) engine(configure func(*goOTP.Builder)) (*goOTP.Engine, error) {
	b := goOTP.New().
		WithClock(a.clock).
		WithLogger(a.log)
	if a.clipboard != nil {
		b = b.WithClipboard(a.clipboard)
	}
	if configure != nil {
		configure(b)
	}
	return b.Build()
}
