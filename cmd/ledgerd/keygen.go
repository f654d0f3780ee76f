package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/ledger/key/ed25519"
)

func newKeygenCmd() *cobra.Command {
	var seedHex string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 account key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				kp  ed25519.Keypair
				err error
			)
			if seedHex != "" {
				seed, derr := hex.DecodeString(seedHex)
				if derr != nil {
					return fmt.Errorf("decode seed: %w", derr)
				}
				kp, err = ed25519.KeypairFromSeed(seed)
			} else {
				kp, err = ed25519.GenerateKeypair(nil)
			}
			if err != nil {
				return err
			}
			pk := kp.Public()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed:       %s\n", hex.EncodeToString(kp.Seed()))
			fmt.Fprintf(out, "public_key: %s\n", pk)
			fmt.Fprintf(out, "pk_hash:    %s\n", ed25519.HashPublicKey(pk))
			return nil
		},
	}
	cmd.Flags().StringVar(&seedHex, "seed", "", "derive the key from this hex seed instead of generating one")
	return cmd
}
