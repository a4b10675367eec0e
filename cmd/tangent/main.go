// Package main provides the Tangent CLI: numerical verification of the
// approximate NTK/NNGP feature maps against exact kernel computation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func main() {
	root := &cobra.Command{
		Use:          "tangent",
		Short:        "Tangent - NTK and NNGP kernel approximation via explicit feature maps",
		SilenceUsage: true,
	}
	root.AddCommand(newVersionCmd(), newVerifyCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tangent %s\n", version)
		},
	}
}
