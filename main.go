/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/azure/cidr-lookup/cmd"

func main() {
	cmd.Execute()
}
