package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/courierhq/courier/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:   "courier",
		Short: "Multi-tenant WhatsApp Business webhook ingestion and media relay",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the webhook ingestion server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetInfo())
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
