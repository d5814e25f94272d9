package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupted run already printed its partial summary; exit with
		// the conventional SIGINT code without repeating the error.
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "pixpress:", err)
		os.Exit(1)
	}
}
