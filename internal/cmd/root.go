package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atikulmunna/colorlog/internal/config"
	"github.com/atikulmunna/colorlog/internal/matcher"
	"github.com/atikulmunna/colorlog/internal/pager"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is the colorlog command bound to the process's standard streams.
var rootCmd = newRootCmd(os.Stdin, os.Stdout, os.Stderr)

// Execute runs the root command and exits with the appropriate status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *pager.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "colorlog:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var cfgFile string

	cmd := &cobra.Command{
		Use:   "colorlog [flags] [files...]",
		Short: "colorlog — severity colors for plain-text logs",
		Long: `colorlog reads log lines from files or standard input and colors each
line by the first severity keyword it contains (TRACE, DEBUG, INFO, WARN,
ERROR, FATAL). Lines without a keyword pass through untouched.

Examples:
  tail -f /var/log/app.log | colorlog
  colorlog app.log server.log -L
  colorlog "/var/log/**/*.log" --summary
  colorlog -f app.log`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags parsed fine; from here on errors are not usage errors.
			cmd.SilenceUsage = true

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runColorize(cmd.Context(), cfg, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.colorlog.yaml)")
	flags.BoolP(config.KeyLess, "L", false, "pipe output through a pager ("+pager.DefaultCommand+")")
	flags.BoolP(config.KeyFollow, "f", false, "keep reading lines appended to the named files")
	flags.String(config.KeyColor, config.ColorAlways, "when to color: always, auto, never")
	flags.String(config.KeyPolicy, string(matcher.Leftmost), "keyword choice for lines with several: leftmost, priority")
	flags.Bool(config.KeySummary, false, "print per-keyword line counts to stderr when done")
	flags.Bool(config.KeyShowRules, false, "print the keyword color table and exit")
	flags.BoolP(config.KeyVerbose, "v", false, "log diagnostics to stderr")

	for _, key := range []string{
		config.KeyLess,
		config.KeyFollow,
		config.KeyColor,
		config.KeyPolicy,
		config.KeySummary,
		config.KeyShowRules,
		config.KeyVerbose,
	} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	return cmd
}

// initConfig layers the config file and COLORLOG_* environment variables
// under the command-line flags. Only an explicitly named file must exist.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("colorlog")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(".colorlog")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
