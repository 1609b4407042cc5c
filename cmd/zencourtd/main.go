// Command zencourtd runs the clip orchestration service and offers
// helpers to sign and verify webhook payloads.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
