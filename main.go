package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"site2apk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !cli.IsSilent(err) {
			fmt.Fprintln(os.Stderr, err)
		}

		os.Exit(1)
	}
}
