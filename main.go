/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/heptatravel/apiserver/cmd"

func main() {
	cmd.Execute()
}
