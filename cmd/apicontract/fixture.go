package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/pkg/fixture"
	"github.com/spf13/cobra"
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Serve the local replica of the placeholder and country APIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		latency, _ := cmd.Flags().GetDuration("latency")
		srv, err := fixture.Listen(addr, fixture.Options{Latency: latency})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fixture serving on %s\n", srv.URL())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

func init() {
	fixtureCmd.Flags().String("addr", constants.DefaultFixtureAddr, "listen address")
	fixtureCmd.Flags().Duration("latency", 0, "delay added to every response")
}
