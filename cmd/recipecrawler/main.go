// Package main is the entry point for the recipecrawler binary.
package main

import "github.com/recipeharvest/crawler/cmd"

func main() {
	cmd.Execute()
}
