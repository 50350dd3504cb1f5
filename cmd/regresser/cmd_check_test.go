package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck_PrintsLayout(t *testing.T) {
	p := filepath.Join(t.TempDir(), "regresser.yml")
	body := `primary-input: slimmedElectrons
primary-transform-config:
  modifier-name: EnergyOffset
  offset: 0.5
secondary-input: lowPtElectrons
secondary-transform-config:
  modifier-name: Identity
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"check", "--config", p})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("check: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"layout: primary+secondary",
		"slimmedElectrons -> regressionForEle:regressedElectrons [EnergyOffset]",
		"lowPtElectrons -> regressionForEle:regressedLowPtElectrons [Identity]",
		"EnergyScale",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestCheck_RejectsMissingModifierName(t *testing.T) {
	p := filepath.Join(t.TempDir(), "regresser.yml")
	if err := os.WriteFile(p, []byte("primary-input: slimmedElectrons\nprimary-transform-config: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"check", "--config", p})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}
