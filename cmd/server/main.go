package main

import (
	"github.com/astroclash/server/internal/cli"
)

func main() {
	cli.Execute()
}
