package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/campaneros/TQGenLevelAnalysis/internal/transport"
)

var probeFlags struct {
	addr    string
	service string
	timeout time.Duration
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query the health endpoint of a running engine",
	RunE:  runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.StringVar(&probeFlags.addr, "addr", "localhost:7070", "Engine gRPC address")
	f.StringVar(&probeFlags.service, "service", transport.Service, "Health service name")
	f.DurationVar(&probeFlags.timeout, "timeout", 3*time.Second, "Probe timeout")
}

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), probeFlags.timeout)
	defer cancel()

	resp, err := transport.Probe(ctx, probeFlags.addr, probeFlags.service)
	if err != nil {
		return fmt.Errorf("probe %s: %w", probeFlags.addr, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), protojson.Format(resp))
	return nil
}
