package main

import (
	"os"

	"github.com/avareg/quickscan/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
