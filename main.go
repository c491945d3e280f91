package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// exitOnError is split out so every error path leaves through one place.
func exitOnError(err error) {
	printError(err)
	os.Exit(1)
}
