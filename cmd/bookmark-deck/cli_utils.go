package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
)

// normalizeArgs reorders args so flags come before positional arguments.
// Go's flag package stops parsing at the first non-flag argument, which means
// "views save Work --json" silently ignores --json. This function moves all
// flags to the front so they get parsed correctly.
func normalizeArgs(fs *flag.FlagSet, args []string) []string {
	// Build set of known boolean flags (don't need a value argument)
	boolFlags := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			boolFlags[f.Name] = true
		}
	})

	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" terminates flag processing
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		if isFlagArg(fs, arg) {
			flags = append(flags, arg)
			name := flagName(arg)

			// Handle --flag=value (value is part of the arg, nothing to move)
			if strings.Contains(arg, "=") {
				continue
			}

			// If it's not a bool flag, the next arg is its value
			if !boolFlags[name] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

// isFlagArg reports whether arg is a flag. Single-dash words that name no
// flag are filter inputs such as "-#react" or "-draft".
func isFlagArg(fs *flag.FlagSet, arg string) bool {
	if !strings.HasPrefix(arg, "-") || arg == "-" {
		return false
	}
	if strings.HasPrefix(arg, "--") {
		return true
	}
	name := flagName(arg)
	return fs.Lookup(name) != nil || name == "h" || name == "help"
}

func flagName(arg string) string {
	name := strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name
}

// stringSlice is a repeatable string flag.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ", ") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// CLIOutput handles consistent output formatting across all CLI commands
type CLIOutput struct {
	jsonMode  bool
	quietMode bool
	stdout    io.Writer
	stderr    io.Writer
}

// NewCLIOutput creates a new CLI output handler
func NewCLIOutput(stdout, stderr io.Writer, jsonMode, quietMode bool) *CLIOutput {
	return &CLIOutput{
		jsonMode:  jsonMode,
		quietMode: quietMode,
		stdout:    stdout,
		stderr:    stderr,
	}
}

// Success prints a success message or JSON response
func (c *CLIOutput) Success(message string, data any) {
	if c.quietMode {
		return
	}
	if c.jsonMode {
		c.printJSON(data)
		return
	}
	fmt.Fprintf(c.stdout, "%s %s\n", successSymbol, message)
}

// Error prints an error message or JSON error response
func (c *CLIOutput) Error(message string, code string) {
	if c.jsonMode {
		c.printJSON(map[string]any{
			"success": false,
			"error":   message,
			"code":    code,
		})
		return
	}
	fmt.Fprintf(c.stderr, "%s Error: %s\n", errorSymbol, message)
}

// Warn prints a non-fatal problem to stderr. Suppressed in JSON and quiet
// modes.
func (c *CLIOutput) Warn(message string) {
	if c.jsonMode || c.quietMode {
		return
	}
	fmt.Fprintf(c.stderr, "%s %s\n", bulletSymbol, message)
}

// Print prints data (human-readable or JSON)
func (c *CLIOutput) Print(humanOutput string, jsonData any) {
	if c.quietMode {
		return
	}
	if c.jsonMode {
		c.printJSON(jsonData)
		return
	}
	fmt.Fprint(c.stdout, humanOutput)
}

// printJSON marshals and prints JSON data
func (c *CLIOutput) printJSON(data any) {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: failed to format JSON: %v\n", err)
		return
	}
	fmt.Fprintln(c.stdout, string(output))
}

// Symbols for human-readable output
const (
	successSymbol = "✓"
	errorSymbol   = "✕"
	bulletSymbol  = "•"
)

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidFilter    = "INVALID_FILTER"
	ErrCodeInvalidArgs      = "INVALID_ARGS"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeNoHostStore      = "NO_HOST_STORE"
	ErrCodeHostError        = "HOST_ERROR"
	ErrCodeStateError       = "STATE_ERROR"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)
