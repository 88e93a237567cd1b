package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/config"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/recent"
	"github.com/rubiojr/bookexplorer/pkg/search"
	"github.com/rubiojr/bookexplorer/pkg/session"
	"github.com/urfave/cli/v3"
)

var noHistoryFlag = &cli.BoolFlag{
	Name:  "no-history",
	Usage: "Keep recent searches in memory only",
	Value: false,
}

// loadConfig loads the configuration file and applies the logging flags.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Configure(c.Bool("debug"), cfg.DebugServices)
	return cfg, nil
}

func newCatalog(cfg *config.Config) *catalog.Client {
	return catalog.NewClient(catalog.OptionsFromConfig(cfg.Catalog))
}

// openRecent opens the recent searches database, or an in-memory list when
// history is disabled.
func openRecent(cfg *config.Config, noHistory bool) (recent.Store, error) {
	if noHistory {
		return recent.NewMemory(cfg.Search.RecentLimit), nil
	}
	store, err := recent.Open(cfg.RecentDBPath(), cfg.Search.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("opening recent searches: %w", err)
	}
	return store, nil
}

func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		Debounce:       cfg.Search.Debounce.Duration,
		MinQueryLength: cfg.Search.MinQueryLength,
	}
}

func sessionDeps(cfg *config.Config, client *catalog.Client, store recent.Store) session.Deps {
	return session.Deps{
		Catalog: client,
		Recent:  store,
		Search:  searchOptions(cfg),
	}
}

func closeQuietly(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Printf("Warning: failed to close %s: %v\n", name, err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
