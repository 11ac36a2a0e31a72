package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tripdesk/internal/connectivity"
	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/gateway"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the booking backend is reachable",
	Long:  "Issue the connectivity probe once and report the mode a new search session would start in. Exits non-zero when the backend is unreachable.",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, log := loadRuntime()
	defer func() { _ = log.Sync() }()

	gw, err := gateway.New(gateway.Options{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
	}, log)
	if err != nil {
		return err
	}

	probe := connectivity.New(gw, cfg.ProbeTimeout, log)
	mode := probe.Detect(context.Background())
	st := probe.Last()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend: %s\n", gw.BaseURL())
	fmt.Fprintf(out, "mode:    %s (%s)\n", mode, mode.Label())
	if st.Err != nil {
		fmt.Fprintf(out, "error:   %v\n", st.Err)
	}

	if mode != domain.ModeRemote {
		return fmt.Errorf("backend unreachable")
	}
	return nil
}
