package main

import "github.com/atikulmunna/colorlog/internal/cmd"

func main() {
	cmd.Execute()
}
