package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/gateway"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/store"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/translate"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/version"
)

func NewBabelrelayCommand() *cobra.Command {
	short := fmt.Sprintf("%s babelrelay - Slack cross-channel translation relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:          "babelrelay",
		Short:        short,
		Example:      "babelrelay gateway --config ~/.babelrelay/config.yaml",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&internal.ConfigFlag, "config", "c", "",
		"Config file (.json, .yaml or .yml; default ~/.babelrelay/config.json)")

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		translate.NewTranslateCommand(),
		store.NewStoreCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewBabelrelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
