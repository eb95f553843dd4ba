// Command sqlbridge runs SQL against SQLite through the asynchronous bridge.
package main

import "github.com/mesh-intelligence/sqlbridge/internal/cli"

func main() {
	cli.Execute()
}
