package main

import "github.com/mvp-joe/formulax/internal/cli"

func main() {
	cli.Execute()
}
