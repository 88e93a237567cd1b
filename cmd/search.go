package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/detail"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/session"
	"github.com/rubiojr/bookexplorer/pkg/sorter"
	"github.com/urfave/cli/v3"
)

var cliLogger = log.ForService("cli")

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog and print the results as cards",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "query",
				Aliases:  []string{"q"},
				Usage:    "Search query",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort mode: relevance, newest, oldest or title",
				Value: string(sorter.Relevance),
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "Number of result pages to load",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "details",
				Usage: "Fetch work and edition details for every result",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print unstyled text, one block per book",
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
			noHistoryFlag,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchBooks(ctx, c)
		},
	}
}

func searchBooks(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.String("query"))
	mode, err := sorter.ParseMode(c.String("sort"))
	if err != nil {
		return err
	}

	store, err := openRecent(cfg, c.Bool("no-history"))
	if err != nil {
		return err
	}
	defer closeQuietly("recent searches", store)

	client := newCatalog(cfg)
	sess := session.New("cli", sessionDeps(cfg, client, store))
	defer sess.Close()
	sess.SetSort(mode)

	view, err := loadPages(ctx, sess, query, c.Int("pages"))
	if err != nil {
		return err
	}

	var details map[string]core.Detail
	if c.Bool("details") {
		details = fetchDetails(ctx, sess, view)
	}

	if c.Bool("plain") {
		return display(formatPlain(view, details), c.Bool("no-pager"))
	}
	return display(formatView(view, details, client), c.Bool("no-pager"))
}

// loadPages submits query and keeps loading pages until pages are loaded or
// the catalog has nothing more.
func loadPages(ctx context.Context, sess *session.Session, query string, pages int) (session.View, error) {
	view, err := sess.Submit(ctx, query)
	if err != nil {
		return view, fmt.Errorf("searching %q: %w", query, err)
	}
	for i := 1; i < pages && view.HasMore; i++ {
		view, err = sess.LoadMore(ctx)
		if err != nil {
			return view, fmt.Errorf("loading page %d: %w", i+1, err)
		}
	}
	return view, nil
}

func fetchDetails(ctx context.Context, sess *session.Session, view session.View) map[string]core.Detail {
	details := make(map[string]core.Detail, len(view.Records))
	for _, r := range view.Records {
		d, err := sess.Details(ctx, r.ID)
		if err != nil && !errors.Is(err, detail.ErrPartialEnrichment) {
			cliLogger.Warnf("details for %s: %v", r.ID, err)
		}
		details[r.ID] = d
	}
	return details
}
