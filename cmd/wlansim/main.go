// Command wlansim runs wireless network experiments.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wlansim/cmd/wlansim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
