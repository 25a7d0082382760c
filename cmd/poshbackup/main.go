package main

import (
	"os"

	"github.com/BootBlock/poshbackup/cmd/poshbackup/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
