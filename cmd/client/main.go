package main

import (
	"storesync/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}
