/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/cidr-lookup/lookup"
)

var log = logrus.New()

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cidr-lookup",
	Short: "Search Azure network address prefixes across subscriptions",
	Long: `cidr-lookup searches the address prefixes of virtual networks, subnets,
public IP prefixes and IP groups across one or more Azure subscriptions,
using Azure Resource Graph.

Filters are matched lexically against the stored prefix strings: a plain
filter is an exact (case-insensitive) match, a filter containing '*' is a
wildcard pattern.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./cidr-lookup.yaml)")
	rootCmd.PersistentFlags().StringP("verbosity", "v", "info", "Log level to use")
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
	rootCmd.PersistentFlags().Bool("structuredLogs", false, "Emit logs as JSON")
	viper.BindPFlag("structuredLogs", rootCmd.PersistentFlags().Lookup("structuredLogs"))
	rootCmd.PersistentFlags().String("resourceGraphToken", "", "Bearer token for Resource Graph, falls back to the default Azure credential chain when empty")
	viper.BindPFlag("resourceGraphToken", rootCmd.PersistentFlags().Lookup("resourceGraphToken"))
	rootCmd.PersistentFlags().StringP("workspaceFolderPath", "w", ".", "Workspace folder CSV exports are written under")
	viper.BindPFlag("workspaceFolderPath", rootCmd.PersistentFlags().Lookup("workspaceFolderPath"))
	rootCmd.PersistentFlags().Duration("queryTimeout", lookup.DefaultQueryTimeout, "Timeout for one subscription's query")
	viper.BindPFlag("queryTimeout", rootCmd.PersistentFlags().Lookup("queryTimeout"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("cidr-lookup")
	}

	viper.SetEnvPrefix("CIDR_LOOKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

func setupLogger() *logrus.Logger {
	logVerbosity := viper.GetString("verbosity")
	logLevel, err := logrus.ParseLevel(logVerbosity)
	if err != nil {
		log.Fatalf("Invalid log level: %s", logVerbosity)
	}
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{})
	if viper.GetBool("structuredLogs") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	for key, value := range viper.GetViper().AllSettings() {
		if key == "resourcegraphtoken" {
			continue
		}
		log.Debugf("Command Flag: %s = %v", key, value)
	}

	return log
}
