package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/spf13/cobra"

	server "github.com/vigil-dq/vigil/server/cmd"
)

const defaultExitCode = 1

//nolint:forbidigo
func main() {
	command := &cobra.Command{
		Use:          "vigil <command>",
		Short:        "Data quality job monitoring service",
		SilenceUsage: true,
	}

	command.AddCommand(
		server.NewServeCommand(),
	)

	if err := command.Execute(); err != nil {
		fmt.Println("unable to complete request successfully:", err)
		os.Exit(defaultExitCode)
	}
}
