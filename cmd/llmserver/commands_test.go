package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	if cmd.Use != "llmserver" {
		t.Errorf("Use = %q, want %q", cmd.Use, "llmserver")
	}
	if !cmd.SilenceUsage {
		t.Error("SilenceUsage should be true to prevent usage on errors")
	}

	flag := cmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("--config flag not found")
	}
	if flag.Shorthand != "c" {
		t.Errorf("--config shorthand = %q, want %q", flag.Shorthand, "c")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"serve", "mcp", "providers", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			if err != nil || sub.Name() != name {
				t.Errorf("subcommand %q not registered", name)
			}
		})
	}
}

func TestVersionCmd_Output(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := out.String(); got != "llmserver dev\n" {
		t.Errorf("output = %q", got)
	}
}

func TestProvidersCmd_Output(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"providers"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 providers, got %d: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "openai") || !strings.Contains(lines[0], "configured (context)") {
		t.Errorf("unexpected openai line %q", lines[0])
	}
	if !strings.Contains(lines[1], "missing api key") {
		t.Errorf("expected gemini without key, got %q", lines[1])
	}
}

func TestServeCmd_InvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VECTOR_BACKEND", "elastic")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown vector backend") {
		t.Errorf("expected vector backend error, got %v", err)
	}
}
