package main

import "github.com/querybird/querybird/cmd"

func main() {
	cmd.Execute()
}
