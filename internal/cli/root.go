// Package cli implements the streaky command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/umq7573/streaky-shooter/internal/cache"
	"github.com/umq7573/streaky-shooter/internal/config"
	"github.com/umq7573/streaky-shooter/internal/nba"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// app holds the shared collaborators built once in PersistentPreRunE and
// used by every subcommand.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	manager *cache.Manager
	client  *nba.Client
	opts    cache.Options
}

// NewRootCmd creates the root command for the streaky CLI and wires up
// config loading, logging, the cache manager, and the stats client.
func NewRootCmd(ver string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "streaky",
		Short:         "NBA shooting streakiness analyzer",
		Long:          "streaky: pull NBA shot data and compute streakiness metrics,\nwith a local cache in front of the slow stats API",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Streakiness for two players over two seasons
  streaky shots --players "Stephen Curry,Klay Thompson" --seasons 2019-20,2020-21

  # Rank the top 50 by minutes, streakiest 3PT shooters first
  streaky rankings --seasons 2023-24 --top-n 50

  # Re-fetch everything regardless of freshness
  streaky shots --players "Stephen Curry" --seasons 2023-24 --force-refresh

  # Inspect or clean the local cache
  streaky cache info
  streaky cache clear-old`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.shutdown()
		},
	}

	cmd.PersistentFlags().String("config", "", "config file path (default ~/.streaky/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().Bool("force-refresh", false, "bypass cache freshness checks, always re-fetch")
	cmd.PersistentFlags().Bool("no-cache", false, "bypass the cache entirely for this invocation")

	cmd.AddCommand(newShotsCmd(a), newRankingsCmd(a), newCacheCmd(a))
	return cmd
}

// setup loads configuration and builds the shared collaborators.
func (a *app) setup(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}
	a.logger = config.InitLogger(cfg.Logging)

	manager, err := cache.NewManager(cfg.Cache.ManagerConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	a.manager = manager

	clientOpts := []nba.Option{
		nba.WithTimeout(cfg.API.Timeout.Std()),
		nba.WithDelay(cfg.API.Delay.Std()),
		nba.WithMaxRetries(cfg.API.MaxRetries),
		nba.WithLogger(a.logger.With().Str("component", "nba").Logger()),
	}
	if cfg.API.BaseURL != "" {
		clientOpts = append(clientOpts, nba.WithBaseURL(cfg.API.BaseURL))
	}
	a.client = nba.NewClient(clientOpts...)

	forceRefresh, _ := cmd.Flags().GetBool("force-refresh")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	a.opts = cache.Options{ForceRefresh: forceRefresh, NoCache: noCache}

	a.logger.Debug().
		Bool("cache_enabled", cfg.Cache.Enabled).
		Str("cache_dir", cfg.Cache.Directory).
		Str("command", cmd.Name()).
		Msg("command started")
	return nil
}

// shutdown flushes the cache index.
func (a *app) shutdown() {
	if a.manager == nil {
		return
	}
	if err := a.manager.Flush(); err != nil {
		a.logger.Warn().Err(err).Msg("could not flush cache index")
	}
}
