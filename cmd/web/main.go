// cmd/web/main.go
//
// CookWorld web – HTTP entry point.
//
// Start-up
// --------
//
//  1. Load config (defaults → conf/.env → conf/cookworld.yaml → COOKWORLD_*
//     env, vault: references resolved).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Install the CSRF key and, when configured, the GeoIP database.
//
//  4. Build the backend client, the auth validator, the capability registry,
//     the view engine, and the gate.  The gate is registered as the view
//     boundary's first error hook so authorization failures downgrade the
//     session.
//
//  5. Mount every registered component behind the gate and serve until
//     SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/auth"
	"github.com/yanizio/cookworld/internal/config"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/logger"
	"github.com/yanizio/cookworld/internal/requestinfo"
	"github.com/yanizio/cookworld/internal/server"
	"github.com/yanizio/cookworld/internal/session"
	"github.com/yanizio/cookworld/internal/view"

	_ "github.com/yanizio/cookworld/components/admin"
	_ "github.com/yanizio/cookworld/components/auth"
	_ "github.com/yanizio/cookworld/components/cookbooks"
	_ "github.com/yanizio/cookworld/components/home"
	_ "github.com/yanizio/cookworld/components/manage"
	_ "github.com/yanizio/cookworld/components/profile"
	_ "github.com/yanizio/cookworld/components/recipes"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the CookWorld web front end",
		RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context()) },
	}
	root := &cobra.Command{
		Use:   "cookworld-web",
		Short: "Server-rendered CookWorld client",
		Long: `cookworld-web renders the CookWorld recipe application and talks to the
CookWorld REST API on behalf of each browser session.

Configuration is read from conf/cookworld.yaml and COOKWORLD_* environment
variables (COOKWORLD_BACKEND__BASE_URL → backend.base_url).`,
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.AddCommand(serveCmd, routesCmd())
	return root
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route access table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, rt := range gate.DefaultTable().Routes() {
				if _, err := fmt.Fprintf(out, "%-10s %s\n", rt.Access, rt.Path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// serve wires every layer and blocks until ctx ends.
func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	form.SetSecret(cfg.CSRF.Key)
	if err := requestinfo.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return err
	}
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		}
		defer requestinfo.CloseGeo()
	}

	//
	// ── Backend, gate, views ───────────────────────────────────────────
	//
	cli, err := api.New(api.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout})
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	reg := gate.NewRegistry(auth.NewValidator(cli, cfg.Gate.ValidationTimeout), gate.RegistryOptions{
		IdleTTL:       cfg.Gate.IdleTTL,
		MaxEntries:    cfg.Gate.MaxEntries,
		EvictInterval: cfg.Gate.EvictInterval,
	})
	defer reg.Close()

	v, err := view.New(view.Options{})
	if err != nil {
		return fmt.Errorf("view engine: %w", err)
	}

	g := gate.New(gate.Options{
		Registry: reg,
		API:      cli,
		Session: session.Options{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
			MaxAge: cfg.Session.MaxAge,
		},
		ResolveWait:  cfg.Gate.ResolveWait,
		MutationWait: cfg.Gate.ValidationTimeout,
		Loading:      v.Loading(),
	})
	v.OnError(g.Fail)

	handler := server.Router(server.Options{
		Gate:          g,
		View:          v,
		ForceHTTPS:    cfg.HTTP.ForceHTTPS,
		AuthPerMinute: cfg.RateLimit.AuthPerMinute,
	})

	logOut.Infow("cookworld web starting", "backend", cfg.Backend.BaseURL, "routes", len(g.Table().Routes()))
	return server.Serve(ctx, server.New(cfg.HTTP, handler))
}
