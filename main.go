package main

import "github.com/cheshire-mcp/cheshire/cmd/cheshired"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cheshired.SetVersion(version)
	cheshired.Execute()
}
