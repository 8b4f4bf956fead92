package cmd

import (
	"fmt"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Watch, rebuild and preview the site with live reload",
	Long: `Serve the output directory over HTTP while watching the source tree. Every
build reloads the pages open in the browser.

Examples:
  pagesmith serve                 # Serve on localhost:8080
  pagesmith serve --port 3000     # Serve on another port
  pagesmith serve --fresh         # Start from a fresh build`,
	RunE: runServe,
}

var (
	serveFresh   bool
	servePublish bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().BoolVar(&serveFresh, "fresh", false, "Clear the output directory before the first build")
	serveCmd.Flags().BoolVar(&servePublish, "publish", false, "Strip .html from internal links after each build")

	AddFlagValidation(serveCmd, "port", ValidatePort)
	bindFlagToConfig(serveCmd.Flags(), "port", "server.port")
	bindFlagToConfig(serveCmd.Flags(), "host", "server.host")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	pipeline.AddCallback(srv.HandleBuild)

	ctx, cancel := signalContext()
	defer cancel()

	session := &watchSession{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		publish:  servePublish || cfg.Build.Publish,
	}

	fmt.Fprintf(cmd.OutOrStdout(), "🌐 Serving %s at http://%s\n", cfg.Paths.Output, cfg.Server.Address())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return errors.NewEnhancedError(
				fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
				err,
				errors.ServerStartSuggestions(err, cfg.Server.Port),
			)
		}
		return nil
	})
	g.Go(func() error {
		return session.run(gctx, serveFresh)
	})

	return g.Wait()
}
