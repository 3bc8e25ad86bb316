// This program is the command line client for a clout node.
package main

import "github.com/cloutcontracts/cloutnet/app/tooling/cloutctl/cmd"

func main() {
	cmd.Execute()
}
