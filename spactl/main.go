// Spactl runs components of a pub/sub network.
package main

import "github.com/cubium/spacore/spactl/cmd"

func main() {
	cmd.Execute()
}
