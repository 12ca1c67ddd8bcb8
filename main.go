package main

import "github.com/msomdec/conduit/internal/cli"

func main() {
	cli.Execute()
}
