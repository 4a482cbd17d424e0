/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/cidr-lookup/azure"
	"github.com/azure/cidr-lookup/csv"
	"github.com/azure/cidr-lookup/filepathparser"
	"github.com/azure/cidr-lookup/panel"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the panel websocket endpoint",
	Long: `The serve command hosts the websocket endpoint the webview panel connects
to. Each connection gets its own message dispatcher; the subscription catalog
cache is shared across connections and invalidated when the configured token
changes.

Examples:
  # Serve on the default address
  cidr-lookup serve

  # Serve on a specific port with a token from the environment
  CIDR_LOOKUP_RESOURCEGRAPHTOKEN=... cidr-lookup serve --listenAddress :9000`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := setupLogger()

		workspaceFolderPath, err := filepathparser.ParsePath(viper.GetString("workspaceFolderPath"))
		if err != nil {
			logger.Fatalf("Error getting workspace folder path: %v", err)
		}

		catalog := azure.NewCatalog()

		server := &panel.Server{
			NewDispatcher: func(poster panel.Poster) *panel.Dispatcher {
				return panel.NewDispatcher(
					poster,
					func() string { return viper.GetString("resourceGraphToken") },
					azure.NewResolver(catalog, logger),
					csv.NewExportClient(workspaceFolderPath, logger),
					viper.GetDuration("queryTimeout"),
					logger,
				)
			},
			Logger: logger,
		}

		mux := http.NewServeMux()
		mux.Handle("/panel/ws", server)

		listenAddress := viper.GetString("listenAddress")
		logger.Infof("Listening on %s", listenAddress)
		if err := http.ListenAndServe(listenAddress, mux); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.PersistentFlags().StringP("listenAddress", "l", ":8780", "Address to listen on")
	viper.BindPFlag("listenAddress", serveCmd.PersistentFlags().Lookup("listenAddress"))
}
