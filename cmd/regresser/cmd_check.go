package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campaneros/TQGenLevelAnalysis/internal/config"
	"github.com/campaneros/TQGenLevelAnalysis/internal/modifier"
	"github.com/campaneros/TQGenLevelAnalysis/internal/stage"
)

var checkFlags struct {
	config string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a stage config and print the assembled layout",
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.config, "config", "regresser.yml", "Stage config file")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadStageConfig(checkFlags.config)
	if err != nil {
		return err
	}
	reg := modifier.Default()
	st, err := stage.New(cfg, reg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, st.Describe())
	fmt.Fprintf(out, "modifiers: %v\n", reg.Names())
	return nil
}
