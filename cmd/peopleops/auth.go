package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"peopleops/internal/secrets"
)

// authCmd manages the local secrets file.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Gemini API credential",
	Long: `The credential is resolved from GEMINI_API_KEY, then GOOGLE_API_KEY, then
the workspace secrets file. Environment variables always win; the file is
only the fallback.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key in the workspace secrets file",
	Long: `Writes the key to .peopleops/secrets.yaml with 0600 permissions. With no
argument the key is read from stdin, which keeps it out of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(os.Stderr, "API key: ")
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				return secrets.ErrNoCredential
			}
			key = strings.TrimSpace(scanner.Text())
		}

		if err := secrets.Write(workspace, key); err != nil {
			return err
		}
		fmt.Printf("Credential written to %s\n", secrets.Path(workspace))
		return nil
	},
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the credential is coming from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cred, err := secrets.Resolve(workspace)
		if err != nil {
			return err
		}
		if !cred.Present() {
			fmt.Println("No credential configured. Set GEMINI_API_KEY or run `peopleops auth set`.")
			return nil
		}
		fmt.Printf("Credential: %s\nSource:     %s\n", cred.Redacted(), cred.Source)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
}
