package main

import (
	"github.com/spf13/cobra"

	"github.com/chitieu/finbot/server"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = cfg.Port
			}

			srv := server.New(server.Config{
				Engine:           a.engine,
				Forecaster:       a.forecaster,
				HistoryExchanges: cfg.HistoryExchanges,
			})
			return srv.Run(cmd.Context(), ":"+port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default: $PORT or 8080)")
	return cmd
}
