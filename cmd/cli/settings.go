package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
)

func newSettingsCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored MapKit credentials",
	}
	cmd.AddCommand(
		newSettingsShowCommand(env),
		newSettingsSetCommand(env),
		newSettingsDeleteCommand(env),
	)
	return cmd
}

func newSettingsShowCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored credentials without the private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := env.app.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			renderSettings(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func newSettingsSetCommand(env *environment) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store new credentials, validating them when all three are given",
		Long: `Replaces the stored credentials. When the key file, key id and team id are
all present a trial token is signed and the outcome is stored as the status. The
credentials are saved even when validation fails.`,
		Example: `  mapkit-admin settings set --key-file AuthKey_ABC1234567.p8 --key-id ABC1234567 --team-id TEAM123456`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKeyFile(creds.keyFile)
			if err != nil {
				return err
			}
			ctx := actorContext(cmd.Context())
			resp, err := env.app.SaveSettings(ctx, &dto.SaveSettingsRequest{
				KeyID:      creds.keyID,
				TeamID:     creds.teamID,
				PrivateKey: key,
				Nonce:      env.app.CreateNonce(ctx).Nonce,
			})
			if err != nil {
				return err
			}
			renderSettings(cmd.OutOrStdout(), resp)
			if resp.ValidationError != nil {
				return fmt.Errorf("credentials saved but not valid: %s", resp.ValidationError.Message)
			}
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func newSettingsDeleteCommand(env *environment) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete credentials without --yes")
			}
			if err := env.app.DeleteSettings(actorContext(cmd.Context())); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
