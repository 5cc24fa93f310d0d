// The main package for the arbeidsplassen-scraper executable.
package main

import (
	"github.com/JonOlav95/arbeidsplassen-scraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
