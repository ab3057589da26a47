// The main package for the foodcrawler executable.
package main

import (
	"github.com/qwzhou89/foodcrawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
