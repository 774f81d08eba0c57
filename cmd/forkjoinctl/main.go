// Command forkjoinctl is a small driver program over the forkjoin
// scheduler: it exercises the library's own scenarios (a spawn tree, a
// record/replay cycle) from the command line and can expose its metrics
// over HTTP, rather than being a scheduler of its own.
package main

import "github.com/vhlavac/forkjoin/cmd/forkjoinctl/cmd"

func main() {
	cmd.Execute()
}
