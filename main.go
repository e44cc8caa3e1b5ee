// The main package for the shotfeed executable.
package main

import (
	"github.com/ThalysDev/finalizabot-sub000/cmd"
)

func main() {
	cmd.Execute()
}
