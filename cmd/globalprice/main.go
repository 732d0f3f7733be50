package main

import "globalprice/internal/cli"

func main() {
	cli.Execute()
}
