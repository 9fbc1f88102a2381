package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/nodepat"
	"github.com/tanema/nodepat/src/conf"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func TestCollectFiles(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.go":             "package a",
		"a_test.go":        "package a",
		"README.md":        "",
		"sub/b.go":         "package b",
		"vendor/v/v.go":    "package v",
		".git/x.go":        "package x",
		"testdata/data.go": "package data",
	})

	files, err := collectFiles([]string{root}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.go"), filepath.Join(root, "sub", "b.go")}, files)

	files, err = collectFiles([]string{root}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.go"),
		filepath.Join(root, "a_test.go"),
		filepath.Join(root, "sub", "b.go"),
	}, files)

	single := filepath.Join(root, "README.md")
	files, err = collectFiles([]string{single}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, files)

	_, err = collectFiles([]string{filepath.Join(root, "missing")}, false)
	assert.Error(t, err)
}

func TestMatchFiles(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.go": "package a\n\nfunc f() { println(1) }\n",
		"b.go": "package b\n\nfunc g() {\n\tprintln(2)\n\tprintln(3)\n}\n",
		"c.go": "package c\n",
	})
	files, err := collectFiles([]string{root}, false)
	require.NoError(t, err)

	reg, err := nodepat.NewRegistry()
	require.NoError(t, err)
	pattern, err := nodepat.New(`CallExpr(Fun: Ident(Name: "println"))`, reg)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 4} {
		var out bytes.Buffer
		count, err := matchFiles(context.Background(), reg, pattern, files, workers, &out)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, strings.Join([]string{
			filepath.Join(root, "a.go") + ":3:12: CallExpr",
			filepath.Join(root, "b.go") + ":4:2: CallExpr",
			filepath.Join(root, "b.go") + ":5:2: CallExpr",
		}, "\n")+"\n", out.String())
	}

	broken := writeTree(t, map[string]string{"bad.go": "package"})
	_, err = matchFiles(context.Background(), reg, pattern, []string{filepath.Join(broken, "bad.go")}, 2, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = matchFiles(context.Background(), reg, nodepat.MustNew("Missing", reg), files, 2, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	logFile := filepath.Join(t.TempDir(), "nodepat.log")
	var out bytes.Buffer
	logger, closeLog, err := newLogger(conf.LogConfig{Level: "info", TimeFormat: "%Y", File: logFile}, &out)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "n", 1)
	require.NoError(t, closeLog())

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "msg=shown n=1")
	assert.Regexp(t, `^time=\d{4} level=INFO`, out.String())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shown"`)

	_, _, err = newLogger(conf.LogConfig{Level: "loud"}, &out)
	assert.Error(t, err)
}
