package main

import (
	"github.com/maxgio92/xstack/pkg/cmd"
)

func main() {
	cmd.Execute()
}
