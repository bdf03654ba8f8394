package main

import (
	"errors"
	"fmt"
	"os"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type verifyFlags struct {
	skew        int
	redisAddr   string
	maxAttempts int
}

func newVerifyCommand(a *app) *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify <item-id> <code>",
		Short: "Check a code against an item",
		Long: `Check a code against an item's current window and its neighbours.

Without a Redis address (flag or REDIS_ADDR) verification is stateless. With one,
accepted codes are recorded so each is accepted at most once, and failed
attempts are counted when --max-attempts is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, a, flags, args[0], args[1])
		},
	}
	cmd.Flags().IntVar(&flags.skew, "skew", 1, "windows accepted on either side of the current one")
	cmd.Flags().StringVar(&flags.redisAddr, "redis-addr", "", "redis address for replay protection (default REDIS_ADDR)")
	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "failed attempts allowed per item before cooldown; needs redis")
	return cmd
}

func runVerify(cmd *cobra.Command, a *app, flags *verifyFlags, id, code string) error {
	addr := flags.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if flags.maxAttempts > 0 && addr == "" {
		return errors.New("--max-attempts needs a redis address")
	}

	var client redis.UniversalClient
	if addr != "" {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer client.Close()
	}

	cfg := goOTP.DefaultConfig()
	cfg.Verify.Skew = flags.skew
	cfg.Verify.EnforceReplayProtection = client != nil
	cfg.Verify.MaxAttempts = flags.maxAttempts
	engine, err := a.engine(func(b *goOTP.Builder) {
		b.WithConfig(cfg)
		if client != nil {
			b.WithRedis(client)
		}
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	r, err := a.resolve(engine, id)
	if err != nil {
		return err
	}
	counter, err := engine.Verify(cmd.Context(), r.ID, r.Secret, r.Params, code)
	if err != nil {
		return fmt.Errorf("item %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok %s counter=%d\n", r.Label, counter)
	return nil
}
