package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// display writes content through a pager when stdout is a terminal.
func display(content string, noPager bool) error {
	if noPager || !isTerminal() {
		fmt.Print(content)
		return nil
	}
	return displayWithPager(content)
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func displayWithPager(content string) error {
	pagerCmd := os.Getenv("PAGER")
	if pagerCmd == "" {
		for _, pager := range []string{"less", "more"} {
			if _, err := exec.LookPath(pager); err == nil {
				pagerCmd = pager
				break
			}
		}
	}

	if pagerCmd == "" {
		fmt.Print(content)
		return nil
	}

	// -F exits immediately when the output fits on one screen
	args := []string{}
	if strings.Contains(pagerCmd, "less") {
		args = []string{"-R", "-S", "-F", "-X"}
	}

	cmd := exec.Command(pagerCmd, args...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
