package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"costscope/cmd/cmdutil"
	"costscope/internal/api"
)

type serveOptions struct {
	addr string
}

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only cost query API",
		Long: `Run the HTTP API over the store. All endpoints are read-only;
mutation happens only through the fetch, evaluate and recommend commands.

Endpoints:
  GET /health
  GET /cost/summary?days=N
  GET /cost/trends?days=N
  GET /cost/services?days=N
  GET /budget/?limit=N
  GET /budget/summary
  GET /optimization/?limit=N&service=S&priority=P
  GET /optimization/summary

Examples:
  # Serve on the default port
  costscope serve

  # Serve on a specific address
  costscope serve --addr 127.0.0.1:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Listen address")

	return cmd
}

func runServe(opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := cmdutil.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	accountID, err := cmdutil.ResolveAccountID(sess)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	st, err := cmdutil.OpenStore(ctx, sess)
	if err != nil {
		return err
	}

	server := api.NewServer(st, accountID)
	if err := server.Serve(ctx, opts.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
