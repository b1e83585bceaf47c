package cmd

import (
	"testing"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"run", "classes", "serve"}
	commands := rootCmd.Commands()

	found := make(map[string]bool)
	for _, c := range commands {
		found[c.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	if rootCmd.Version == "" {
		t.Error("root command version should be set")
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	format := rootCmd.PersistentFlags().Lookup("format")
	if format == nil {
		t.Fatal("persistent flag --format not registered")
	}
	if format.DefValue != "yaml" {
		t.Errorf("--format default = %q, want yaml", format.DefValue)
	}
	if rootCmd.PersistentFlags().Lookup("debug") == nil {
		t.Error("persistent flag --debug not registered")
	}
}
