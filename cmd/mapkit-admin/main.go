package main

import (
	"github.com/omega-networks/mapkit-auth/cmd/cli"
)

// main is the entry point for the mapkit-admin command-line tool.
// main 是 mapkit-admin 命令行工具的入口点。
func main() {
	cli.Execute()
}
