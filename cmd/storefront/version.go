package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func versionCmd(c *cli) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// конфигурация для версии не нужна
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			build := version.Current()
			if short {
				_, _ = fmt.Fprintln(c.out, build.Version)
				return
			}
			_, _ = fmt.Fprintf(c.out, "Version:    %s\n", build.Version)
			_, _ = fmt.Fprintf(c.out, "Commit:     %s\n", build.Commit)
			_, _ = fmt.Fprintf(c.out, "Built:      %s\n", build.Date)
			_, _ = fmt.Fprintf(c.out, "Go version: %s\n", build.GoVersion)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only version number")
	return cmd
}
