package main

import "tokcount/internal/cli"

func main() {
	cli.Execute()
}
