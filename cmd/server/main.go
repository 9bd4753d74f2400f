// Command server runs lionrepo, an in-memory LionWeb model repository
// served over HTTP, and offers offline tools for chunk files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
