package main

import (
	"errors"
	"fmt"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/cmd/otpwatch/internal/items"
	"github.com/spf13/cobra"
)

func newURICommand(a *app) *cobra.Command {
	var issuer, account string
	cmd := &cobra.Command{
		Use:   "uri <item-id>",
		Short: "Print an otpauth provisioning URI for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(nil)
			if err != nil {
				return err
			}
			defer engine.Close()
			r, err := a.resolve(engine, args[0])
			if err != nil {
				return err
			}
			if account == "" {
				account = r.ID
			}
			uri, err := goOTP.ProvisionURI(issuer, account, r.Secret, r.Params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "otpwatch", "issuer shown by authenticator apps")
	cmd.Flags().StringVar(&account, "account", "", "account name (default item id)")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	it := items.Item{}
	cmd := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Store a new item from a secret or an otpauth URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it.ID = args[0]
			if (it.Secret == "") == (it.URI == "") {
				return errors.New("exactly one of --secret or --uri is required")
			}
			if _, err := it.Resolve(nil); err != nil {
				return err
			}

			f, path, err := a.loadItems()
			if err != nil {
				return err
			}
			if _, err := f.Get(it.ID); err == nil {
				return fmt.Errorf("item %q already exists", it.ID)
			}
			f.Items = append(f.Items, it)
			if err := items.Save(f, path); err != nil {
				return fmt.Errorf("failed to save items: %w", err)
			}
			a.log.WithField("item_id", it.ID).Info("otpwatch: item added")
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", it.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&it.Name, "name", "", "display name")
	cmd.Flags().StringVar(&it.Kind, "kind", "", "login (default) or authenticator")
	cmd.Flags().StringVar(&it.Secret, "secret", "", "Base32 shared secret")
	cmd.Flags().StringVar(&it.URI, "uri", "", "otpauth://totp/ provisioning URI")
	cmd.Flags().IntVar(&it.Digits, "digits", 0, "code length for authenticator items")
	cmd.Flags().IntVar(&it.Period, "period", 0, "time step in seconds for authenticator items")
	return cmd
}
