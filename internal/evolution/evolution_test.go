package evolution

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVCoercesNumbersAndKeepsUnknownColumns(t *testing.T) {
	table := ParseCSV([]byte("entity,n-revs,weird-column\nmain.go,4,hello\n"))

	require.Equal(t, []string{"entity", "n-revs", "weird-column"}, table.Header)
	require.Len(t, table.Rows, 1)

	assert.Equal(t, "main.go", table.Rows[0][0].Raw)
	assert.False(t, table.Rows[0][0].IsNumber)

	assert.True(t, table.Rows[0][1].IsNumber)
	assert.Equal(t, 4.0, table.Rows[0][1].Number)

	assert.Equal(t, "hello", table.Rows[0][2].Raw)
	assert.False(t, table.Rows[0][2].IsNumber)

	assert.Equal(t, 1, table.Column("n-revs"))
	assert.Equal(t, -1, table.Column("nonexistent"))
}

func TestParseCSVEmptyInputIsZeroRowsNotError(t *testing.T) {
	table := ParseCSV([]byte(""))

	assert.Nil(t, table.Header)
	assert.Len(t, table.Rows, 0)
}

func fakeJava(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a posix shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "java")
	// Ignores its arguments and prints the same two-row CSV for every
	// sub-analysis.
	script := "#!/bin/sh\nfor a in \"$@\"; do :; done\nshift $(($#-1))\necho \"entity,n-revs\nmain.go,1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return path
}

func TestOrchestratorRunReturnsDeterministicOrder(t *testing.T) {
	java := fakeJava(t)

	orch := New(java, "unused.jar", 4, 5*time.Second, time.Second)

	logPath := filepath.Join(t.TempDir(), "evo.log")
	require.NoError(t, os.WriteFile(logPath, []byte{}, 0o644))

	results := orch.Run(context.Background(), logPath)

	require.Len(t, results, len(analyses))

	for i, r := range results {
		assert.Equal(t, analyses[i], r.Analysis)
		assert.Equal(t, "terminated-ok", string(r.RunnerState))
	}
}
