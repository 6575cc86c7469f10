// arweave-validate is a small CLI harness around the validator module: it
// loads two JSON block-header fixtures and an optional block-index file,
// then runs the full Validate sequence and prints the structured result.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
