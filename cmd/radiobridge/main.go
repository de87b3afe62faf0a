// Command radiobridge drives the Bluetooth activity bridge against a
// simulated native host.
package main

import (
	"os"

	"github.com/go-drift/radiobridge/cmd/radiobridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
