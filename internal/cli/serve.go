package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/server"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

func newServeCmd(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signed-in user's board over HTTP",
		Long: `Serve the signed-in user's board as a JSON API. Every request except
/healthz needs "Authorization: Bearer <token>" carrying that user's
session token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), o, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, o *options, addr string) error {
	e, err := openEnv(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	n := notify.NewLogger(e.log)
	id, err := e.signedIn(ctx, e.gate(n))
	if err != nil {
		return err
	}

	session := e.session(n)
	if err := startSession(ctx, session, id.UserID); err != nil {
		return err
	}
	defer session.Stop()

	interval := time.Duration(e.cfg.Store.PingIntervalSec) * time.Second
	go tasksync.NewMonitor(e.pinger, session, interval, e.log).Run(ctx)

	if addr == "" {
		addr = e.cfg.Server.Addr
	}
	e.log.WithField("user", id.Email).Info("serving board")
	return server.New(e.controller(session, n), e.provider, e.log).Run(ctx, addr)
}
