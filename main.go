package main

import "github.com/CliMA/tempestmodel/cmd"

func main() {
	cmd.Execute()
}
