package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketpages/internal/domain"
	"pocketpages/internal/service"
)

// run executes the root command against dir and returns what it printed.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

// resetFlags puts every flag back to its default between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestNewListShow(t *testing.T) {
	dir := t.TempDir()

	id := strings.TrimSpace(mustRun(t, dir, "new", "Weekend plans"))
	require.NotEmpty(t, id)
	mustRun(t, dir, "new")

	out := mustRun(t, dir, "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Weekend plans")
	assert.Contains(t, out, "Untitled")

	out = mustRun(t, dir, "list", "--query", "weekend")
	assert.Contains(t, out, "Weekend plans")
	assert.NotContains(t, out, "Untitled")

	out = mustRun(t, dir, "show", id)
	assert.True(t, strings.HasPrefix(out, "# Weekend plans\n"), out)
}

func TestShowMissingPage(t *testing.T) {
	_, err := run(t, t.TempDir(), "show", "nope")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}

func TestTrashLifecycle(t *testing.T) {
	dir := t.TempDir()
	id := strings.TrimSpace(mustRun(t, dir, "new", "Draft"))

	mustRun(t, dir, "delete", id)
	assert.Equal(t, "No pages\n", mustRun(t, dir, "list"))
	assert.Contains(t, mustRun(t, dir, "trash"), id)

	mustRun(t, dir, "restore", id)
	assert.Contains(t, mustRun(t, dir, "list"), id)
	assert.Equal(t, "No pages\n", mustRun(t, dir, "trash"))

	mustRun(t, dir, "purge", id)
	assert.Equal(t, "No pages\n", mustRun(t, dir, "list"))

	_, err := run(t, dir, "restore", id)
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}

func TestEmptyTrash(t *testing.T) {
	dir := t.TempDir()
	a := strings.TrimSpace(mustRun(t, dir, "new", "a"))
	b := strings.TrimSpace(mustRun(t, dir, "new", "b"))
	mustRun(t, dir, "delete", a)
	mustRun(t, dir, "delete", b)

	assert.Equal(t, "Purged 0 pages\n", mustRun(t, dir, "empty-trash", "--expired"),
		"pages trashed just now are within retention")
	assert.Equal(t, "Purged 2 pages\n", mustRun(t, dir, "empty-trash"))
}

func TestSettingsCommands(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "theme = system\n", mustRun(t, dir, "settings"))

	mustRun(t, dir, "settings", "set", "theme", "light")
	assert.Equal(t, "light\n", mustRun(t, dir, "settings", "get", "theme"))

	_, err := run(t, dir, "settings", "set", "theme", "sepia")
	assert.ErrorIs(t, err, service.ErrInvalidSetting)
	_, err = run(t, dir, "settings", "get", "font")
	assert.ErrorIs(t, err, service.ErrInvalidSetting)
}

func TestArgsValidation(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "show")
	assert.Error(t, err)
	_, err = run(t, dir, "settings", "set", "theme")
	assert.Error(t, err)
}

func TestRenderPage(t *testing.T) {
	todo := domain.NewBlock(domain.BlockTypeTodo)
	todo.Content = "call mom"
	todo.Properties[domain.PropertyCompleted] = true

	blocks := []domain.Block{
		{Type: domain.BlockTypeHeading2, Content: "Plan"},
		{Type: domain.BlockTypeNumberedList, Content: "one"},
		{Type: domain.BlockTypeNumberedList, Content: "two"},
		{Type: domain.BlockTypeText, Content: "break"},
		{Type: domain.BlockTypeNumberedList, Content: "again"},
		todo,
		{Type: domain.BlockTypeTodo, Content: "pay rent"},
		{Type: domain.BlockTypeDivider},
		{Type: domain.BlockTypeCode, Content: "go test ./..."},
	}
	got := renderPage(&domain.Page{Blocks: blocks})

	want := "# Untitled\n\n" +
		"## Plan\n" +
		"1. one\n" +
		"2. two\n" +
		"break\n" +
		"1. again\n" +
		"[x] call mom\n" +
		"[ ] pay rent\n" +
		"---\n" +
		"```\ngo test ./...\n```\n"
	assert.Equal(t, want, got)
}
