package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/operaciones-factoring/pkg/jwt"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un token JWT para consultar la API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		tok, err := jwt.Generate(rt.cfg.JWT.Secret, tokenEmail, rt.cfg.JWT.Issuer, rt.cfg.JWT.Expiration)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Correo del ejecutivo")
	_ = tokenCmd.MarkFlagRequired("email")
}
