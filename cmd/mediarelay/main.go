package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mediarelay/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "mediarelay",
	Short:   "Web front end relaying user records and photos",
	Long: `mediarelay serves a small web front end over a remote Record API,
storing uploaded photos in S3 (or a local directory) and relaying record
reads, updates and deletes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("env", "", "environment: dev or prod (env: MEDIARELAY_ENV)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: MEDIARELAY_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("api-url", "", "Record API collection URL (env: MEDIARELAY_API_URL, API_GATEWAY_URL)")
	rootCmd.PersistentFlags().String("storage-backend", "", "blob store backend: s3, filesystem (env: MEDIARELAY_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("bucket", "", "S3 bucket name (env: MEDIARELAY_STORAGE_S3_BUCKET, S3_BUCKET_NAME)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem backend directory (env: MEDIARELAY_STORAGE_FILESYSTEM_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
