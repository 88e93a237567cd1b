package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/detail"
	"github.com/urfave/cli/v3"
)

// DetailsCommand creates the details command
func DetailsCommand() *cli.Command {
	return &cli.Command{
		Name:  "details",
		Usage: "Show work and edition details for one book",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Work identifier, e.g. OL893415W or /works/OL893415W",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showDetails(ctx, c)
		},
	}
}

func showDetails(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	id := core.IDFromKey(strings.TrimSpace(c.String("id")))
	if id == "" {
		return fmt.Errorf("work id is required")
	}

	enricher := detail.NewEnricher(newCatalog(cfg))
	d, err := enricher.Fetch(ctx, id)
	if err != nil && !errors.Is(err, detail.ErrPartialEnrichment) {
		return fmt.Errorf("fetching details for %s: %w", id, err)
	}

	fmt.Println(titleStyle.Render(id))
	fmt.Println(formatDetail(d))
	return nil
}
