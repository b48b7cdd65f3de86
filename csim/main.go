// Command csim simulates a set-associative cache over a memory trace.
package main

import "github.com/sarchlab/csim/csim/cmd"

func main() {
	cmd.Execute()
}
