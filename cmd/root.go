package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koizuka/orderscraper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix of every environment variable the CLI reads.
const EnvPrefix = "ROAPP"

// runPipeline is replaced in tests so the CLI can be exercised without a browser.
var runPipeline = orderscraper.Run

// NewRootCommand returns a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "orderscraper",
		Short: "Log into the orders web application and save the orders table to CSV or JSON.",
		Long: `orderscraper signs in (with credentials, a saved session state, or a human
completing the login in a visible browser), waits for the orders table and writes
its rows to the output file. The file format follows the extension: .json or CSV.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := configFromViper(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(logConfigFromViper(v), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			records, err := runPipeline(cmd.Context(), config, orderscraper.NewZapLogger(logger))
			if err != nil {
				logger.Error("orders export failed",
					zap.Int("exit_code", orderscraper.ExitCode(err)),
					zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rows to %v\n", len(records), config.OutputPath)
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file (rotated)")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))

	flags := rootCmd.Flags()
	flags.String("email", "", "login identifier")
	flags.String("password", "", "login secret")
	flags.StringP("output", "o", orderscraper.DefaultOutputPath, "output file (.json for JSON, anything else for CSV)")
	flags.String("output-encoding", "utf-8", "charset of CSV output, e.g. windows-1251")
	flags.String("headless", "true", "run the browser without a window (1/true/yes/y/on)")
	flags.Bool("manual-login", false, "wait for a human to log in when no credentials are given (needs --headless=false)")
	flags.Int("timeout-ms", int(orderscraper.DefaultTimeout/time.Millisecond), "bound of every wait, in milliseconds")
	flags.String("storage-state", "", "file to load the session state from and save it to")
	flags.String("base-url", orderscraper.DefaultBaseURL, "base URL of the application")
	flags.String("locale", orderscraper.DefaultLocale, "browser locale")
	flags.Bool("no-sandbox", false, "disable the Chrome sandbox (containers, root)")
	for key, flag := range map[string]string{
		"email":           "email",
		"password":        "password",
		"output":          "output",
		"output_encoding": "output-encoding",
		"headless":        "headless",
		"manual_login":    "manual-login",
		"timeout_ms":      "timeout-ms",
		"storage_state":   "storage-state",
		"base_url":        "base-url",
		"locale":          "locale",
		"no_sandbox":      "no-sandbox",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(newShowCommand())
	return rootCmd
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

// parseBool accepts the truthy spellings people put into environment files.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func configFromViper(v *viper.Viper) (orderscraper.Config, error) {
	config := orderscraper.DefaultConfig()
	config.Credentials = orderscraper.Credentials{
		Identifier: strings.TrimSpace(v.GetString("email")),
		Secret:     strings.TrimSpace(v.GetString("password")),
	}
	config.OutputPath = v.GetString("output")
	config.OutputEncoding = v.GetString("output_encoding")
	config.Headless = parseBool(v.GetString("headless"))
	config.ManualLogin = parseBool(v.GetString("manual_login"))
	config.Timeout = time.Duration(v.GetInt("timeout_ms")) * time.Millisecond
	config.SessionStatePath = strings.TrimSpace(v.GetString("storage_state"))
	config.BaseURL = v.GetString("base_url")
	config.Locale = v.GetString("locale")
	config.NoSandbox = parseBool(v.GetString("no_sandbox"))
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return orderscraper.ExitCode(err)
	}
	return orderscraper.ExitOK
}
