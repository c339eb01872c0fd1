package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *flag.FlagSet // create FlagSet with flags
		args     []string
		expected []string
	}{
		{
			name: "flags already before positional args",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.Bool("json", false, "")
				return fs
			},
			args:     []string{"--json", "save", "Work"},
			expected: []string{"--json", "save", "Work"},
		},
		{
			name: "bool flag after positional arg",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.Bool("json", false, "")
				return fs
			},
			args:     []string{"save", "Work", "--json"},
			expected: []string{"--json", "save", "Work"},
		},
		{
			name: "string flag after positional arg",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.String("sort", "", "")
				return fs
			},
			args:     []string{"#go", "--sort", "title"},
			expected: []string{"--sort", "title", "#go"},
		},
		{
			name: "flag with equals syntax",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.String("sort", "", "")
				return fs
			},
			args:     []string{"#go", "--sort=title"},
			expected: []string{"--sort=title", "#go"},
		},
		{
			name: "negated filter inputs stay positional",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.Bool("q", false, "")
				return fs
			},
			args:     []string{"add", "-#react", "-draft", "-q"},
			expected: []string{"-q", "add", "-#react", "-draft"},
		},
		{
			name: "double dash terminates flags",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				fs.Bool("json", false, "")
				return fs
			},
			args:     []string{"add", "--", "--json"},
			expected: []string{"add", "--json"},
		},
		{
			name: "repeatable flag",
			setup: func() *flag.FlagSet {
				fs := flag.NewFlagSet("test", flag.ContinueOnError)
				var s stringSlice
				fs.Var(&s, "filter", "")
				return fs
			},
			args:     []string{"--filter", "#a", "x", "--filter", "#b"},
			expected: []string{"--filter", "#a", "--filter", "#b", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeArgs(tt.setup(), tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("normalizeArgs(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestStringSlice(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var s stringSlice
	fs.Var(&s, "filter", "")
	require.NoError(t, fs.Parse([]string{"--filter", "#a", "--filter=-#b"}))
	assert.Equal(t, stringSlice{"#a", "-#b"}, s)
	assert.Equal(t, "#a, -#b", s.String())
}

func TestCLIOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	NewCLIOutput(&stdout, &stderr, false, false).Success("done", nil)
	assert.Equal(t, successSymbol+" done\n", stdout.String())

	stdout.Reset()
	NewCLIOutput(&stdout, &stderr, false, true).Success("done", nil)
	assert.Empty(t, stdout.String(), "quiet mode prints nothing")

	NewCLIOutput(&stdout, &stderr, false, false).Error("boom", ErrCodeNotFound)
	assert.Contains(t, stderr.String(), "Error: boom")

	stdout.Reset()
	NewCLIOutput(&stdout, &stderr, true, false).Error("boom", ErrCodeNotFound)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "NOT_FOUND", payload["code"])

	stderr.Reset()
	NewCLIOutput(&stdout, &stderr, true, false).Warn("careful")
	assert.Empty(t, stderr.String(), "warnings are suppressed in JSON mode")
}
