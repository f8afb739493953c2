package main

import (
	"github.com/freyrlabs/mimir/cmd/mimir/cmd"
)

func main() {
	cmd.Execute()
}
