// Package main is the startpage-sync command line.
//
// Usage:
//
//	startpage-sync serve --config config/default.yaml
//	startpage-sync sync-icons
//	startpage-sync sync-icon 42
//
// See --help for every subcommand.
package main

func main() {
	Execute()
}
