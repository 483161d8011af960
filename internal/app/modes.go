package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ammdesk/internal/orchestrator"
	"github.com/alanyoungcy/ammdesk/internal/server"
	"github.com/alanyoungcy/ammdesk/internal/server/handler"
	"github.com/alanyoungcy/ammdesk/internal/server/ws"
	"github.com/alanyoungcy/ammdesk/internal/session"
)

// ServeMode runs the full interactive session: the WebSocket hub, the session
// engine, the 1 Hz clock, the transaction orchestrator, and the HTTP API.
// It blocks until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	engine := session.NewEngine(deps.Reader, hub, a.cfg.Chain.ExplorerHost, deps.Initial, a.logger)
	orch := orchestrator.New(deps.Writer, a.cfg.Chain.MarketAddr(), deps.TxStore, engine.Dispatch, a.logger)
	orch.Start(ctx)

	// Seed warm display values, then fetch the real snapshot. Bootstrap
	// tolerates individual read failures; missing values stay unavailable
	// until a later refresh lands.
	deps.Reader.WarmStart(ctx, []uint64{deps.Initial.Selected})
	if err := deps.Reader.Bootstrap(ctx, deps.Initial.Selected); err != nil {
		a.logger.WarnContext(ctx, "bootstrap incomplete", slog.String("error", err.Error()))
	}

	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		return session.RunClock(ctx, engine.Dispatch)
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		}, server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Markets: handler.NewMarketHandler(deps.Reader, a.logger),
			Session: handler.NewSessionHandler(engine, orch, a.logger),
		}, hub, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StatusMode fetches one snapshot, renders the derived view for the configured
// market, prints it to stdout as JSON, and exits.
func (a *App) StatusMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting status mode")

	if err := deps.Reader.Bootstrap(ctx, deps.Initial.Selected); err != nil {
		a.logger.WarnContext(ctx, "bootstrap incomplete", slog.String("error", err.Error()))
	}

	st := deps.Initial
	st.Now = time.Now().Unix()
	engine := session.NewEngine(deps.Reader, nil, a.cfg.Chain.ExplorerHost, st, a.logger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(engine.View()); err != nil {
		return err
	}
	return nil
}
