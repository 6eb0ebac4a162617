package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/sdk/go/mapkit_verifier"
)

// credentialFlags lets a command sign with explicit credentials instead of the stored ones.
type credentialFlags struct {
	keyFile string
	keyID   string
	teamID  string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.keyFile, "key-file", "", "path to the .p8 private key")
	cmd.Flags().StringVar(&f.keyID, "key-id", "", "MapKit key identifier (kid)")
	cmd.Flags().StringVar(&f.teamID, "team-id", "", "Apple Developer team identifier (iss)")
}

func (f *credentialFlags) set() bool {
	return f.keyFile != "" || f.keyID != "" || f.teamID != ""
}

// resolve returns the flag credentials when any flag is set, the stored ones otherwise.
func (f *credentialFlags) resolve(cmd *cobra.Command, env *environment) (*models.SigningCredential, error) {
	if f.set() {
		key, err := readKeyFile(f.keyFile)
		if err != nil {
			return nil, err
		}
		return (&models.SigningCredential{PrivateKey: key, KeyID: f.keyID, TeamID: f.teamID}).Sanitized(), nil
	}
	return env.components.Store.Load(cmd.Context())
}

func newValidateCommand(env *environment) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Prove the credentials can sign a token",
		Long: `Signs a 60 second trial token with the stored credentials, or with the
credentials given by --key-file, --key-id and --team-id.`,
		Example: `  mapkit-admin validate
  mapkit-admin validate --key-file AuthKey_ABC1234567.p8 --key-id ABC1234567 --team-id TEAM123456`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := creds.resolve(cmd, env)
			if err != nil {
				return err
			}
			if err := env.issuer.ValidateCredentials(cmd.Context(), cred.KeyID, cred.TeamID, cred.PrivateKey); err != nil {
				return fmt.Errorf("credentials are not valid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials for key %s (team %s) are valid\n", cred.KeyID, cred.TeamID)
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func newIssueCommand(env *environment) *cobra.Command {
	var (
		creds  credentialFlags
		ttl    time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a MapKit JS token",
		Example: `  mapkit-admin issue --ttl 1h
  mapkit-admin issue --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := creds.resolve(cmd, env)
			if err != nil {
				return err
			}
			if !cred.Complete() {
				return fmt.Errorf("no credentials configured")
			}
			tok, err := env.issuer.IssueToken(cmd.Context(), cred.KeyID, cred.TeamID, cred.PrivateKey, ttl)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dto.NewTokenResponse(tok))
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Raw)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().DurationVar(&ttl, "ttl", constants.CLIDefaultTokenTTL, "token lifetime")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the token with its expiry as JSON")
	return cmd
}

func newInspectCommand() *cobra.Command {
	var (
		keyFile string
		origin  string
		keyID   string
		teamID  string
	)
	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a token and optionally verify its signature",
		Long: `Prints the header and claims of a MapKit token. With --key-file the ES256
signature, expiry and any --key-id, --team-id or --origin expectations are checked.
The key file may be the .p8 private key, a PEM public key or a JWK.`,
		Example:     `  mapkit-admin inspect eyJhbGciOi... --key-file AuthKey_ABC1234567.p8`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])

			if keyFile == "" {
				tok, err := mapkit_verifier.Decode(raw)
				if err != nil {
					return err
				}
				renderToken(cmd.OutOrStdout(), tok, "not checked")
				return nil
			}

			data, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("read key file: %w", err)
			}
			pub, err := mapkit_verifier.LoadPublicKey(data)
			if err != nil {
				return err
			}
			v := mapkit_verifier.NewVerifier(pub,
				mapkit_verifier.WithKeyID(keyID),
				mapkit_verifier.WithTeamID(teamID),
				mapkit_verifier.WithOrigin(origin),
			)
			tok, err := v.Verify(raw)
			if err != nil {
				if tok != nil {
					renderToken(cmd.OutOrStdout(), tok, "failed")
				}
				return err
			}
			renderToken(cmd.OutOrStdout(), tok, "valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&keyFile, "key-file", "", "key used to verify the signature")
	cmd.Flags().StringVar(&keyID, "key-id", "", "expected kid header")
	cmd.Flags().StringVar(&teamID, "team-id", "", "expected iss claim")
	cmd.Flags().StringVar(&origin, "origin", "", "expected origin claim")
	return cmd
}
