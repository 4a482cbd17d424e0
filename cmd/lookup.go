/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/cidr-lookup/azure"
	"github.com/azure/cidr-lookup/csv"
	"github.com/azure/cidr-lookup/filepathparser"
	"github.com/azure/cidr-lookup/lookup"
	"github.com/azure/cidr-lookup/query"
	"github.com/azure/cidr-lookup/types"
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Search address prefixes once and print the results",
	Long: `The lookup command runs one search across the resolved subscriptions and
prints the aggregated results as CSV on stdout, or writes them to a
timestamped CSV file under the workspace folder with --exportCsv.

Examples:
  # Exact prefixes across all visible subscriptions
  cidr-lookup lookup --cidr "10.0.0.0/24, 192.168.1.0/24"

  # Wildcard pattern scoped to two subscriptions, exported to a file
  cidr-lookup lookup --cidr "10.0.*" --subscriptions sub-1,sub-2 --exportCsv`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := setupLogger()

		graph, err := azure.NewGraphClient(viper.GetString("resourceGraphToken"), logger)
		if err != nil {
			logger.Fatalf("Error creating Resource Graph client: %v", err)
		}

		resolver := azure.NewResolver(azure.NewCatalog(), logger)
		lookupClient := lookup.NewLookupClient(graph, resolver, viper.GetDuration("queryTimeout"), logger)

		filters := query.ParseFilters(viper.GetString("cidr"))
		result, err := lookupClient.Run(cmd.Context(), filters, viper.GetStringSlice("subscriptions"), &logSink{Logger: logger})
		if err != nil {
			logger.Fatalf("Lookup failed: %v", err)
		}

		logger.Infof("Matched %d prefixes", len(result.Rows))

		if viper.GetBool("exportCsv") {
			workspaceFolderPath, err := filepathparser.ParsePath(viper.GetString("workspaceFolderPath"))
			if err != nil {
				logger.Fatalf("Error getting workspace folder path: %v", err)
			}
			if _, err := csv.NewExportClient(workspaceFolderPath, logger).Export(result); err != nil {
				logger.Fatalf("Error exporting results: %v", err)
			}
			return
		}

		fmt.Print(csv.Render(result.Rows, result.Columns))
	},
}

// logSink reports lookup progress through the logger instead of a panel.
type logSink struct {
	Logger *logrus.Logger
}

func (sink *logSink) Init(subscriptions []types.SubscriptionInfo) {
	sink.Logger.Infof("Querying %d subscriptions", len(subscriptions))
}

func (sink *logSink) Status(subscriptionID string, status types.SubscriptionStatus, count int, message string) {
	switch status {
	case types.SubscriptionStatusDone:
		sink.Logger.Infof("Subscription %s: %d matches", subscriptionID, count)
	case types.SubscriptionStatusError:
		sink.Logger.Warnf("Subscription %s: %s", subscriptionID, message)
	default:
		sink.Logger.Debugf("Subscription %s: %s", subscriptionID, status)
	}
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.PersistentFlags().StringP("cidr", "c", "", "Comma or newline separated CIDR filters, '*' is a wildcard")
	viper.BindPFlag("cidr", lookupCmd.PersistentFlags().Lookup("cidr"))
	lookupCmd.PersistentFlags().StringSliceP("subscriptions", "s", []string{}, "Subscription IDs to query, all visible subscriptions when empty")
	viper.BindPFlag("subscriptions", lookupCmd.PersistentFlags().Lookup("subscriptions"))
	lookupCmd.PersistentFlags().BoolP("exportCsv", "e", false, "Write results to a timestamped CSV file under the workspace folder")
	viper.BindPFlag("exportCsv", lookupCmd.PersistentFlags().Lookup("exportCsv"))
}
