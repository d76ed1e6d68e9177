// Package cli is responsible for parsing command-line arguments and flags.
// It translates the raw arguments from the shell into a validated command
// for the app package, keeping flag handling out of the core logic.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/provision/internal/app"
)

// ExitError signals that the application should exit with a specific status
// code, typically due to a command-line usage error.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Command is the result of a successful parse: which subcommand to run and
// the fully resolved configuration for it.
type Command struct {
	Name   string
	Config *app.Config
}

const usageText = `Usage: provision <command> [flags]

Commands:
  run      Execute a provisioning plan.
  status   Show the latest recorded state of each step.
  reset    Clear all recorded provisioning state.

Run 'provision <command> -h' for details on a command's flags.
`

// Parse processes command-line arguments. It returns the parsed command, a
// boolean indicating if the program should exit cleanly (e.g. after printing
// help), and an error for invalid usage.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	if len(args) == 0 {
		fmt.Fprint(output, usageText)
		return nil, true, nil
	}

	switch args[0] {
	case "run":
		return parseRun(args[1:], output)
	case "status", "reset":
		return parseStateCommand(args[0], args[1:], output)
	case "help", "-h", "--help":
		fmt.Fprint(output, usageText)
		return nil, true, nil
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q\n\n%s", args[0], usageText)}
	}
}

func parseRun(args []string, output io.Writer) (*Command, bool, error) {
	fs := flag.NewFlagSet("provision run", flag.ContinueOnError)
	fs.SetOutput(output)

	planPath := fs.String("plan", "", "Path to the provisioning plan file or directory (required)")
	modulesPath := fs.String("modules", "modules", "Path to the runner module manifests")
	stateDir := fs.String("state-dir", ".provision", "Directory holding the state journal")
	workers := fs.Int("workers", 4, "Number of concurrent step workers")
	force := fs.Bool("force", false, "Re-execute steps even if they already succeeded")
	logLevel, logFormat := addLoggingFlags(fs)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err := validateLoggingFlags(*logLevel, *logFormat); err != nil {
		return nil, false, err
	}
	if *planPath == "" {
		return nil, false, &ExitError{Code: 2, Message: "the -plan flag is required for 'provision run'"}
	}
	if *workers < 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid -workers value %d: must be at least 1", *workers)}
	}

	cfg, err := app.NewConfig(app.Config{
		PlanPath:    *planPath,
		ModulesPath: *modulesPath,
		StateDir:    *stateDir,
		LogLevel:    *logLevel,
		LogFormat:   *logFormat,
		WorkerCount: *workers,
		Force:       *force,
	})
	if err != nil {
		return nil, false, err
	}
	return &Command{Name: "run", Config: cfg}, false, nil
}

// parseStateCommand handles the subcommands that only touch the journal and
// never load a plan.
func parseStateCommand(name string, args []string, output io.Writer) (*Command, bool, error) {
	fs := flag.NewFlagSet("provision "+name, flag.ContinueOnError)
	fs.SetOutput(output)

	stateDir := fs.String("state-dir", ".provision", "Directory holding the state journal")
	logLevel, logFormat := addLoggingFlags(fs)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err := validateLoggingFlags(*logLevel, *logFormat); err != nil {
		return nil, false, err
	}

	return &Command{Name: name, Config: &app.Config{
		StateDir:  *stateDir,
		LogLevel:  *logLevel,
		LogFormat: *logFormat,
	}}, false, nil
}

func addLoggingFlags(fs *flag.FlagSet) (level, format *string) {
	level = fs.String("log-level", "info", "Set the logging level (debug, info, warn, error)")
	format = fs.String("log-format", "text", "Set the log output format (text, json)")
	return level, format
}

func validateLoggingFlags(level, format string) error {
	switch strings.ToLower(format) {
	case "text", "json":
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("invalid -log-format value %q: must be 'text' or 'json'", format)}
	}
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("invalid -log-level value %q: must be one of debug, info, warn, error", level)}
	}
	return nil
}
