package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/macrochart/internal/adapters/http/api"
	"github.com/okian/macrochart/internal/adapters/http/swagger"
	app "github.com/okian/macrochart/internal/app"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/fixtures"
	"github.com/okian/macrochart/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

type setupFunc func() (*runtimeEnv, error)

func newRunCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run [chart...]",
		Short: "Run chart pipelines and write their artifacts (all charts when none named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, closeSvc, err := newService(ctx, env)
			if err != nil {
				return err
			}
			defer closeSvc()

			outs := svc.RunAll(ctx, args...)
			printOutcomes(cmd.OutOrStdout(), outs)
			for _, o := range outs {
				if o.Err != nil {
					return errChartsFailed
				}
			}
			return nil
		},
	}
}

func newServeCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart API",
		RunE: func(_ *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, closeSvc, err := newService(ctx, env)
			if err != nil {
				return err
			}
			defer closeSvc()

			go startSystemMetricsUpdater(ctx)
			return serve(ctx, env, newHTTPServer(env.cfg.Addr, svc, api.Canvas{Width: env.cfg.Width, Height: env.cfg.Height}))
		},
	}
}

func newHTTPServer(addr string, svc *app.Service, canvas api.Canvas) *http.Server {
	r := api.NewServer(svc, canvas).Router()
	swagger.Register(r)
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, env *runtimeEnv, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		env.log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	env.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		env.log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	env.log.Info(ctx, "server stopped")
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the chart catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printCatalog(cmd.OutOrStdout(), charts.Default())
			return nil
		},
	}
}

func newFixturesCmd(setup setupFunc) *cobra.Command {
	var (
		dir      string
		lastYear int
	)
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Write synthetic extracts for every configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = env.cfg.DataDir
			}
			files, err := fixtures.Write(dir, env.cfg.Sources, fixtures.Options{LastYear: lastYear})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default: data_dir)")
	cmd.Flags().IntVar(&lastYear, "last-year", 0, "Last year of generated data (default 2024)")
	return cmd
}

func printCatalog(w io.Writer, c *charts.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
	for _, ch := range c.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ch.Name, ch.Figure.Kind, ch.Description)
	}
	_ = tw.Flush()
}

func printOutcomes(w io.Writer, outs []app.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHART\tSTATUS\tROWS\tUNDEFINED\tDURATION\tDETAIL")
	for _, o := range outs {
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		} else {
			for i, a := range o.Artifacts {
				if i > 0 {
					detail += " "
				}
				if a.Skipped {
					detail += a.Format + ":skipped"
					continue
				}
				detail += a.Path
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", o.Chart, o.Status(), o.Rows, o.Undefined, o.Duration.Round(time.Millisecond), detail)
	}
	_ = tw.Flush()
}
