// The main package for the ekw-sourcer executable.
package main

import (
	"github.com/jswiatek/ekw-sourcer/cmd"
)

func main() {
	cmd.Execute()
}
