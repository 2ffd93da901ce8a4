package config_test

import (
	"os"
	"testing"

	"github.com/devhaven/memoryd/internal/config"
)

func TestInitializeSetsDefaults(t *testing.T) {
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := config.GetInt("sweeper.budget-seconds"); got != 5 {
		t.Fatalf("sweeper.budget-seconds = %d, want 5", got)
	}
	if got := config.GetString("recall.scope"); got != "all" {
		t.Fatalf("recall.scope = %q, want all", got)
	}
}

func TestEnvVarOverridesDefault(t *testing.T) {
	t.Setenv("MEMORYD_SWEEPER_BUDGET_SECONDS", "30")
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := config.GetInt("sweeper.budget-seconds"); got != 30 {
		t.Fatalf("sweeper.budget-seconds = %d, want 30 (env override)", got)
	}
}

func TestSetOverridesEverything(t *testing.T) {
	t.Setenv("MEMORYD_RECALL_SCOPE", "project")
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	config.Set("recall.scope", "global")
	if got := config.GetString("recall.scope"); got != "global" {
		t.Fatalf("recall.scope = %q, want global after explicit Set", got)
	}
}

func TestConfigFileUsedEmptyWithoutFile(t *testing.T) {
	dir := t.TempDir()
	old, _ := os.Getwd()
	defer os.Chdir(old)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := config.ConfigFileUsed(); got != "" {
		t.Fatalf("ConfigFileUsed = %q, want empty in a directory with no config", got)
	}
}
