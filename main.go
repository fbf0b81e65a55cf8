// lockrun runs commands under OS advisory file locks and inspects lock
// file state.
package main

import "github.com/twiced-technology-gmbh/lockrun/cmd"

func main() {
	cmd.Execute()
}
