package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rubiojr/bookexplorer/pkg/detail"
	"github.com/rubiojr/bookexplorer/pkg/session"
	"github.com/rubiojr/bookexplorer/pkg/sorter"
	"github.com/urfave/cli/v3"
)

const exploreHelp = `Type a query and press enter to search. Commands:
  :more          load the next page
  :sort MODE     relevance, newest, oldest or title
  :details N     show details for result N
  :retry         repeat the last failed request
  :recent        list recent searches
  :help          show this help
  :quit          leave
`

var shellCommands = []string{":more", ":sort", ":details", ":retry", ":recent", ":help", ":quit"}

// ExploreCommand creates the interactive explore command
func ExploreCommand() *cli.Command {
	return &cli.Command{
		Name:  "explore",
		Usage: "Interactive search shell",
		Flags: []cli.Flag{noHistoryFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			return explore(ctx, c)
		},
	}
}

func explore(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := openRecent(cfg, c.Bool("no-history"))
	if err != nil {
		return err
	}
	defer closeQuietly("recent searches", store)

	client := newCatalog(cfg)
	sess := session.New("explore", sessionDeps(cfg, client, store))
	defer sess.Close()

	sh := &shell{sess: sess, covers: client, out: os.Stdout}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return sh.complete(ctx, input)
	})

	historyPath := filepath.Join(cfg.StorageDir, "explore_history")
	if f, err := os.Open(historyPath); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			cliLogger.Debugf("reading shell history: %v", err)
		}
		f.Close()
	}
	defer func() {
		if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
			return
		}
		if f, err := os.Create(historyPath); err == nil {
			if _, err := line.WriteHistory(f); err != nil {
				cliLogger.Debugf("writing shell history: %v", err)
			}
			f.Close()
		}
	}()

	fmt.Print(exploreHelp)
	for {
		input, err := line.Prompt("books> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if sh.exec(ctx, input) {
			return nil
		}
	}
}

// shell interprets explore input lines against a session.
type shell struct {
	sess   *session.Session
	covers coverResolver
	out    io.Writer
}

// exec runs one input line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, ":") {
		view, err := sh.sess.Submit(ctx, input)
		sh.show(view, err)
		return false
	}

	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprint(sh.out, exploreHelp)
	case ":more":
		before := sh.sess.View()
		if !before.HasMore {
			fmt.Fprintln(sh.out, noDataStyle.Render("No more results"))
			return false
		}
		view, err := sh.sess.LoadMore(ctx)
		sh.show(view, err)
	case ":retry":
		view, err := sh.sess.Retry(ctx)
		sh.show(view, err)
	case ":sort":
		mode, err := sorter.ParseMode(arg)
		if err != nil || arg == "" {
			fmt.Fprintf(sh.out, "usage: :sort %s\n", strings.Join(modeNames(), "|"))
			return false
		}
		sh.show(sh.sess.SetSort(mode), nil)
	case ":details":
		sh.details(ctx, arg)
	case ":recent":
		terms, err := sh.sess.Recent(ctx)
		if err != nil {
			fmt.Fprintln(sh.out, errorStyle.Render(err.Error()))
			return false
		}
		if len(terms) == 0 {
			fmt.Fprintln(sh.out, noDataStyle.Render("No recent searches"))
		}
		for i, t := range terms {
			fmt.Fprintf(sh.out, "%d. %s\n", i+1, t)
		}
	default:
		fmt.Fprintf(sh.out, "unknown command %s, try :help\n", fields[0])
	}
	return false
}

func (sh *shell) show(view session.View, err error) {
	if err != nil && view.Error == "" {
		fmt.Fprintln(sh.out, errorStyle.Render(err.Error()))
		return
	}
	fmt.Fprint(sh.out, formatView(view, nil, sh.covers))
}

func (sh *shell) details(ctx context.Context, arg string) {
	view := sh.sess.View()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(view.Records) {
		fmt.Fprintf(sh.out, "usage: :details N (1-%d)\n", len(view.Records))
		return
	}

	r := view.Records[n-1]
	d, err := sh.sess.Details(ctx, r.ID)
	if err != nil && !errors.Is(err, detail.ErrPartialEnrichment) {
		cliLogger.Debugf("details for %s: %v", r.ID, err)
	}
	fmt.Fprint(sh.out, formatCard(r, n, &d, sh.covers))
	fmt.Fprintln(sh.out)
}

// complete offers shell commands, sort modes and recent searches.
func (sh *shell) complete(ctx context.Context, input string) []string {
	var out []string
	if strings.HasPrefix(input, ":sort ") {
		prefix := strings.TrimPrefix(input, ":sort ")
		for _, m := range modeNames() {
			if strings.HasPrefix(m, prefix) {
				out = append(out, ":sort "+m)
			}
		}
		return out
	}
	if strings.HasPrefix(input, ":") {
		for _, c := range shellCommands {
			if strings.HasPrefix(c, input) {
				out = append(out, c)
			}
		}
		return out
	}

	terms, err := sh.sess.Recent(ctx)
	if err != nil {
		return nil
	}
	lower := strings.ToLower(input)
	for _, t := range terms {
		if strings.HasPrefix(strings.ToLower(t), lower) {
			out = append(out, t)
		}
	}
	return out
}

func modeNames() []string {
	var names []string
	for _, m := range sorter.Modes() {
		names = append(names, string(m))
	}
	return names
}
