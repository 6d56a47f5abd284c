package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/welcome"
)

const welcomeMessage = "Bem-vindo ao drop! Os itens são limitados."

func welcomeCmd(c *cli) *cobra.Command {
	var dismiss bool

	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "Show the one-time welcome message",
		Long: `Печатает приветствие, пока его не закрыли. С --dismiss приветствие
закрывается для текущего профиля навсегда.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			storage, err := openCartStorage(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, storage.Close()) }()

			gate := welcome.NewGate(storage)
			if dismiss {
				return gate.Dismiss()
			}

			show, err := gate.ShouldShow()
			if err != nil || !show {
				return err
			}
			_, err = fmt.Fprintln(c.out, welcomeMessage)
			return err
		},
	}

	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "dismiss the welcome message")
	return cmd
}
