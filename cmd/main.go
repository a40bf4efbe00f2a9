package main

import "os"

func main() {
	root, _ := newCLI()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
