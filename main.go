package main

import "bitebook/cmd"

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cmd.Execute(version)
}
