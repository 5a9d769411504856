package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/cmdutil"
	"github.com/ArashRezazadeh/DataAnnotations/internal/config"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

var (
	keygenOut   string
	keygenSize  int
	keygenForce bool
)

var keygenCmd = &cobra.Command{
	Use:         "keygen",
	Short:       "Generate a JWT signing key file",
	Long:        `Writes a random base64 HMAC key to --out (default: jwt.key_file). Existing files are kept unless --force is given.`,
	Annotations: map[string]string{cmdutil.AnnotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := keygenOut
		if path == "" {
			config.SetDefaults(viper.GetViper())
			path = viper.GetString("jwt.key_file")
		}

		if _, err := os.Stat(path); err == nil && !keygenForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		key, err := token.GenerateKey(keygenSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signing key written to %s\n", path)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOut, "out", "", "Key file path (default: jwt.key_file)")
	keygenCmd.Flags().IntVar(&keygenSize, "bytes", 64, "Random bytes before base64 encoding")
	keygenCmd.Flags().BoolVar(&keygenForce, "force", false, "Overwrite an existing key file")
}
