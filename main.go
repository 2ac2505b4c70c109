package main

import "github.com/andresmejia3/ascivid/cmd"

func main() {
	cmd.Execute()
}
