package main

import "github.com/sitewave/sitewave/cmd"

func main() {
	cmd.Execute()
}
