package main

import "github.com/haidv/outpost/internal/cli"

func main() {
	cli.Execute()
}
