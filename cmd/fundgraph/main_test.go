package main

import (
	"testing"
)

func TestScoreCmdFlags(t *testing.T) {
	cmd := newScoreCmd()
	f := cmd.Flags()

	// Test default values
	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}
	results, _ := f.GetString("results")
	if results != "results" {
		t.Errorf("default results = %q, want results", results)
	}

	// Test that flags exist
	for _, flag := range []string{"results", "round", "period", "model", "output", "archive-dir", "relaxed"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestAllocateCmdFlags(t *testing.T) {
	cmd := newAllocateCmd()
	f := cmd.Flags()

	budget, _ := f.GetFloat64("budget")
	if budget != 0 {
		t.Errorf("default budget = %v, want 0", budget)
	}

	for _, flag := range []string{"results", "round", "period", "model", "output", "budget", "min-amount", "max-share"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestRenderCmdFlags(t *testing.T) {
	cmd := newRenderCmd()
	f := cmd.Flags()

	for _, flag := range []string{"results", "round", "period", "model", "file", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestConsolidateCmdFlags(t *testing.T) {
	cmd := newConsolidateCmd()
	f := cmd.Flags()

	for _, flag := range []string{"round", "period", "database-url", "record"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("FUNDGRAPH_TEST_KEY", "set")
	if got := envOrDefault("FUNDGRAPH_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("envOrDefault = %q, want set", got)
	}
	if got := envOrDefault("FUNDGRAPH_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envOrDefault = %q, want fallback", got)
	}
}
