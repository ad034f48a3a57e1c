package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qaplatform/qaglue/internal/devserver"
	"github.com/qaplatform/qaglue/internal/errors"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		addr  string
		db    string
		token string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run a local backend serving /vote, /search, /api/suggest_tags,
/api/stats, the /ws realtime channel and /metrics.

Votes are kept in memory unless --db names a SQLite file.

Examples:
  qaglue serve
  qaglue serve --addr=:8080 --db=votes.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Dev.Addr = addr
			}
			if db != "" {
				cfg.Dev.DB = db
			}
			if token != "" {
				cfg.Dev.CSRFToken = token
			}

			var store devserver.Store = devserver.NewMemoryStore()
			if cfg.Dev.DB != "" {
				store, err = devserver.OpenSQLite(cfg.Dev.DB)
				if err != nil {
					return errors.New("Q250").
						WithDetail("Could not open " + cfg.Dev.DB).
						Wrap(err)
				}
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			srv := devserver.New(store,
				devserver.WithLogger(g.logger(cmd.ErrOrStderr())),
				devserver.WithCSRFToken(cfg.Dev.CSRFToken),
				devserver.WithRateLimit(cfg.Dev.VoteRate, cfg.Dev.VoteBurst),
			)

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printBanner(w)
			err = srv.ListenAndServe(ctx, cfg.Dev.Addr, func(a net.Addr) {
				success(w, "Listening on http://%s", a)
				if cfg.Dev.DB != "" {
					info(w, "Votes stored in %s", cfg.Dev.DB)
				} else {
					info(w, "Votes stored in memory")
				}
				info(w, "CSRF token: %s", cfg.Dev.CSRFToken)
			})
			if err != nil {
				return errors.New("Q201").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default from config)")
	cmd.Flags().StringVar(&db, "db", "", "SQLite database path (default: in memory)")
	cmd.Flags().StringVar(&token, "csrf-token", "", "CSRF token the backend expects")

	return cmd
}
