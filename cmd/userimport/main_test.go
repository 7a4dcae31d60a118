package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/fatih/color"
)

func TestCLIEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("LOG_LEVEL", "debug")

	env := cliEnv("memory")
	if got := env("STORAGE_DRIVER"); got != "memory" {
		t.Errorf("STORAGE_DRIVER = %q, want memory", got)
	}
	if got := env("AUTH_REQUIRED"); got != "false" {
		t.Errorf("AUTH_REQUIRED = %q, want false", got)
	}
	if got := env("LOG_LEVEL"); got != "debug" {
		t.Errorf("LOG_LEVEL = %q, want passthrough", got)
	}

	if got := cliEnv("")("STORAGE_DRIVER"); got != "postgres" {
		t.Errorf("without --store, STORAGE_DRIVER = %q, want postgres", got)
	}
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	rep := &core.Report{
		Message: "Imported 1 of 3 users (1 skipped, 1 failed)",
		BatchID: "b-1",
		Summary: core.Summary{Total: 3, Inserted: 1, Skipped: 1, Failed: 1},
		Details: []core.RowDetail{
			{Row: 1, Username: "alice", Status: core.StatusSuccess, Identifier: "STU000001_1"},
			{Row: 2, Username: "alice", Status: core.StatusSkipped, Reason: "username already exists"},
			{Row: 3, Username: "carol", Status: core.StatusFailed, Reason: "PASSWORD is required"},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, rep, false)
	out := buf.String()

	for _, want := range []string{
		"Imported 1 of 3 users",
		"skipped: username already exists",
		"failed: PASSWORD is required",
		"total 3  inserted 1  skipped 1  failed 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "STU000001_1") {
		t.Error("successful rows are hidden unless verbose")
	}

	buf.Reset()
	printReport(&buf, rep, true)
	if !strings.Contains(buf.String(), "imported STU000001_1") {
		t.Errorf("verbose output missing success row:\n%s", buf.String())
	}
}
