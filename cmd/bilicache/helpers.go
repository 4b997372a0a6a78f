package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func stdoutIsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// parseIndexArgs turns 1-based selection arguments into indexes into a list
// of n items.
func parseIndexArgs(args []string, n int) ([]int, error) {
	var indexes []int
	seen := make(map[int]struct{})
	for _, arg := range args {
		value, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q: expected an entry number", arg)
		}
		if value < 1 || value > n {
			return nil, fmt.Errorf("selection %d out of range 1..%d", value, n)
		}
		if _, dup := seen[value-1]; dup {
			continue
		}
		seen[value-1] = struct{}{}
		indexes = append(indexes, value-1)
	}
	return indexes, nil
}
