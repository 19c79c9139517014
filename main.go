package main

import "github.com/CraigKelly/imprior/cmd"

func main() {
	cmd.Execute()
}
