package main

import (
	"github.com/chittyos/chittyrouter/cmd/chittyrouter/cmd"
)

func main() {
	cmd.Execute()
}
