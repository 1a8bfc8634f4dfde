package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "healwatch",
		Short: "HealWatch - CI/CD healing agent dashboard",
		Long: `HealWatch tracks runs of the CI/CD healing agent service.
It submits repositories for healing, polls run status, and presents
live progress in a terminal or browser dashboard with run history.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
