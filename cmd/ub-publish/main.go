package main

import "github.com/unused-buddy/npm-dist/cmd/ub-publish/cmd"

func main() {
	cmd.Execute()
}
