package main

import "github.com/mvp-joe/shadow-ui/internal/cli"

func main() {
	cli.Execute()
}
