package main

import "github.com/mcoot/doublesclub/internal/cli"

func main() {
	cli.Execute()
}
