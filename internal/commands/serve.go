package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"weaver/internal/export"
	"weaver/internal/server"
)

type serveOptions struct {
	port   string
	export string
	out    string
}

func newServeCmd(a *app) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, a, o)
		},
	}
	cmd.Flags().StringVar(&o.port, "port", "", "listen address (default from PORT)")
	cmd.Flags().StringVar(&o.export, "export", "", "write every related run to file, postgres or s3")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "directory for --export file")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, o *serveOptions) error {
	ctx := cmd.Context()

	var sink export.Sink
	if o.export != "" {
		var err error
		if sink, err = export.Open(ctx, o.export, o.out, a.cfg.Export); err != nil {
			return err
		}
		defer sink.Close()
	}

	gen, release, err := a.generator(ctx)
	if err != nil {
		return err
	}
	defer release()

	handler := server.NewHandler(server.HandlerConfig{
		Generator: gen,
		Defaults:  a.cfg.GeneratorOptions(),
		Registry:  a.registry,
		Sink:      sink,
		Logger:    a.log,
	})
	port := a.cfg.Port
	if o.port != "" {
		port = o.port
	}
	srv := server.New(port, server.NewRouter(handler), a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
