package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules(t *testing.T) {
	const n = 20

	dir := t.TempDir()
	paths := make([]string, 0, n)
	want := make([]string, 0, n*2)
	for i := range n {
		lines := []string{
			fmt.Sprintf("||ads%d.example^", i),
			fmt.Sprintf("site%d.example##.ad", i),
		}
		want = append(want, lines...)

		p := filepath.Join(dir, fmt.Sprintf("list%d.txt", i))
		err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
		require.NoError(t, err)

		paths = append(paths, p)
	}

	got, err := loadRules(paths)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestLoadRules_errors(t *testing.T) {
	_, err := loadRules(nil)
	assert.ErrorIs(t, err, errNoFilterLists)

	empty := writeTestFile(t, "empty.txt")
	lines, err := loadRules([]string{empty})
	require.NoError(t, err)

	assert.NotNil(t, lines)
	assert.Empty(t, lines)

	_, err = loadRules([]string{empty, filepath.Join(t.TempDir(), "missing.txt")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	long := writeTestFile(t, "long.txt", strings.Repeat("a", maxLineLength+1))
	_, err = loadRules([]string{long})
	assert.Error(t, err)
}
