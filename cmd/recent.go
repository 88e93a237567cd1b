package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RecentCommand creates the recent command
func RecentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List or clear recent searches",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Remove every recent search",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showRecent(ctx, c)
		},
	}
}

func showRecent(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := openRecent(cfg, false)
	if err != nil {
		return err
	}
	defer closeQuietly("recent searches", store)

	if c.Bool("clear") {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Recent searches cleared")
		return nil
	}

	terms, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		fmt.Println(noDataStyle.Render("No recent searches"))
		return nil
	}
	for i, t := range terms {
		fmt.Printf("%d. %s\n", i+1, t)
	}
	return nil
}
