package main

import "github.com/haneul-dev/addrsearch/internal/cli"

func main() {
	cli.Execute()
}
