// The main package for the courscomptes executable.
package main

import (
	"github.com/ARAGRAGMED/scraper-cours-comptes/cmd"
)

func main() {
	cmd.Execute()
}
