// Package cli implements the command-line interface for the Likes CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/cache"
	"github.com/colthorp/likes-cli-go/internal/config"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// globalFlags are the persistent flags shared by all commands.
type globalFlags struct {
	json       bool
	noCache    bool
	verbose    bool
	quiet      bool
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "likes",
		Short: "Likes CLI – training data from the Likes platform",
		Long: `A command-line utility for the Likes training platform (趣跑运动).

Activities, plans and feedback are cached under ~/.cache/likes-running.
Data older than a week is fetched once; recent days are always refreshed.`,
		Version:       core.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.json, "json", false, "Output raw JSON")
	pf.BoolVar(&flags.noCache, "no-cache", false, "Bypass cache, always hit API")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose debug output to stderr")
	pf.BoolVar(&flags.quiet, "quiet", false, "Suppress progress messages")
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (default ~/.config/likes/config.yaml or $"+core.ConfigFileEnvVar+")")

	rootCmd.AddCommand(
		newActivitiesCmd(flags),
		newPlansCmd(flags),
		newFeedbackCmd(flags),
		newPushCmd(flags),
		newCacheCmd(flags),
		newBackfillCmd(flags),
		newMCPCmd(flags),
	)
	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Get your key at: https://my.likes.com.cn (设置 → 申请 API Key)")
		}
		stop()
		os.Exit(1)
	}
}

// env is what a command needs at run time.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	api    *api.LikesAPI
	cache  *cache.Manager
	flags  *globalFlags
}

// setup loads the config and wires logger, client and cache. With needKey
// set, a missing API key fails before anything touches the network.
func setup(cmd *cobra.Command, flags *globalFlags, needKey bool) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if needKey {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := core.NewLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)

	likes := api.NewLikesAPI(api.NewClient(cfg.API.ClientOptions(), logger))
	manager := cache.NewManager(likes, cache.NewFilesystemBackend(cfg.Cache.Dir),
		cache.WithLogger(logger),
		cache.WithFrozenDays(cfg.Cache.FrozenDays),
	)
	return &env{cfg: cfg, logger: logger, api: likes, cache: manager, flags: flags}, nil
}

// progress prints a status line to stderr unless --quiet or --json is set.
func (e *env) progress(format string, args ...any) {
	core.ProgressPrint(fmt.Sprintf(format, args...), e.flags.quiet || e.flags.json)
}

// flushMetrics writes the cache counters for the node_exporter textfile
// collector when metrics.textfile is configured.
func (e *env) flushMetrics() {
	path := e.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, cache.Registry); err != nil {
		e.logger.Warn("metrics textfile write failed", "path", path, "error", err)
	}
}

// run wraps a command body with setup and metrics flushing.
func run(flags *globalFlags, needKey bool, body func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, flags, needKey)
		if err != nil {
			return err
		}
		defer e.flushMetrics()
		return body(cmd, e, args)
	}
}
