package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/web"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

// serveCmd serves the will page over HTTP.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the digital will page",
	Long: `Serve the Digital Will Manager page on a local address. The page
connects the wallet, lists your wills, and mints and checks in on them.

Chain and account changes reported by the wallet reset the page.

Example:
  testament serve
  testament serve --listen 127.0.0.1:3000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen)")
}

// serveFn runs the server until ctx ends. Tests replace it.
//
//nolint:gochecknoglobals // Replaceable for testing
var serveFn = func(ctx context.Context, srv *web.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	addr := serveListen
	if addr == "" {
		addr = cc.Cfg.Server.Listen
	}

	recorder := app.NewRecorder(0)
	notifier := app.Multi{recorder, app.NotifierFunc(func(n app.Notification) {
		cc.Log.Debug("notification [%s] %s: %s", n.Level, n.Title, n.Message)
	})}

	wp, err := openPage(cc, notifier, true)
	if err != nil {
		return err
	}
	defer wp.Close()

	srv, err := web.New(&web.Config{
		Page:           wp.Page,
		Notifications:  recorder,
		AllowedOrigins: cc.Cfg.Server.AllowedOrigins,
		ActionTimeout:  cc.Cfg.GetTxTimeout(),
		Logger:         cc.Log.With("http"),
		Metrics:        cc.Metrics,
	})
	if err != nil {
		return err
	}

	mountCtx, cancel := contextWithTimeout(cmd, cc.Cfg.GetTxTimeout())
	if err := wp.Mount(mountCtx); err != nil {
		cc.Log.Error("restoring session: %v", err)
	}
	cancel()

	out(cmd.OutOrStdout(), "Serving %s on http://%s (Ctrl+C to stop)\n", web.PageTitle, addr)
	return serveFn(cmd.Context(), srv, addr)
}
