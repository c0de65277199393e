package cli

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/notify"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

// feedSize is how many undisplayed notifications the TUI keeps.
const feedSize = 16

func newTUICmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), o)
		},
	}
}

func runTUI(ctx context.Context, o *options) error {
	o.logToFile = true
	e, err := openEnv(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := notify.NewFeed(feedSize)
	n := notify.Multi(feed, notify.NewLogger(e.log))
	gate := e.gate(n)
	session := e.session(n)
	ctrl := e.controller(session, n)

	root, unsubscribe := app.New(ctx, ctrl, gate, feed, e.log)
	defer unsubscribe()

	go app.FollowAuth(ctx, gate, session, e.log)
	interval := time.Duration(e.cfg.Store.PingIntervalSec) * time.Second
	go tasksync.NewMonitor(e.pinger, session, interval, e.log).Run(ctx)

	if _, err := gate.Restore(ctx); err != nil {
		e.log.WithError(err).Warn("restoring session")
	}

	_, err = tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
