// Command procharness runs procedures as test cases.
package main

import (
	"os"

	"github.com/roach88/procharness/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], os.Stdout, os.Stderr))
}
