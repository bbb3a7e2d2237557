// Command interact drives an intervention dialogue from the terminal against a
// running adherence server and reports stored sessions.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
