package main

import (
	"github.com/kestcalc/kestcalc/cmd"
)

func main() {
	cmd.Execute()
}
