package main

import (
	"github.com/chriserin/ftspec/cmd"
	"github.com/chriserin/ftspec/features"
)

func main() {
	cmd.Execute(features.Catalog(), features.Steps())
}
