package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// Ctrl-C mid-batch is an orderly stop; the summary already printed.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bilicache: %v\n", err)
	}
	os.Exit(1)
}
