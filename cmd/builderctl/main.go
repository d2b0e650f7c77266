// Package main is the entry point for builderctl, a small CLI for poking at
// the character builder without a host application.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "builderctl",
	Short: "Character builder CLI",
	Long:  `builderctl drives the character builder service from the command line: run a scripted demo build or validate a compendium.`,
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(validateCmd)
}
