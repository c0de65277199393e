// Package cli implements the taskflow command line: account commands,
// one-shot task commands, the terminal UI and the HTTP API server.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/model"
)

var errNotSignedIn = errors.New("not signed in; run `taskflow login` first")

// options carries the global flags and the terminal hooks commands use.
type options struct {
	configPath  string
	openKeyring func() (keyring.Keyring, error)
	ask         func(title string, secret bool) (string, error)

	// logToFile sends logs to a file under the config directory when the
	// config names none.
	logToFile bool
}

func defaultOptions() *options {
	return &options{
		configPath:  model.DefaultConfigPath(),
		openKeyring: defaultKeyring,
		ask:         askTerminal,
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultOptions())
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "Personal task board with a kanban, list and calendar view",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), o)
		},
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", o.configPath, "config file path")

	root.AddCommand(
		newSignUpCmd(o),
		newLoginCmd(o),
		newLogoutCmd(o),
		newPasswdCmd(o),
		newAddCmd(o),
		newListCmd(o),
		newBoardCmd(o),
		newMoveCmd(o),
		newRemoveCmd(o),
		newTUICmd(o),
		newServeCmd(o),
	)
	return root
}

// Execute runs the command line until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func askTerminal(title string, secret bool) (string, error) {
	var value string
	input := huh.NewInput().Title(title).Value(&value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := input.Run(); err != nil {
		return "", err
	}
	return value, nil
}
