// The main package for the kg-ingest executable.
package main

import (
	"github.com/meatloaf02/KG/cmd"
)

func main() {
	cmd.Execute()
}
