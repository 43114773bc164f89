package main

import (
	"github.com/the-dev-tools/dev-tools/packages/weight/cmd/weightctl/cmd"
)

func main() {
	cmd.Execute()
}
