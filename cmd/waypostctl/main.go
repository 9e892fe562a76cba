// The waypostctl command provides a command-line interface for exercising
// the Waypost telemetry pipeline.
package main

import "github.com/waypost/waypost/internal/waypostctl/cmd"

func main() {
	cmd.Execute()
}
