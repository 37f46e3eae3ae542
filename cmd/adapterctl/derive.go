package main

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
)

type derivedAddress struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

func newDeriveCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive program account addresses",
	}

	var wallet string
	user := &cobra.Command{
		Use:   "user",
		Short: "Derive the user account of a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			walletKey, err := parseKey("wallet", wallet)
			if err != nil {
				return err
			}

			address, bump, err := opts.program.GetUserAddress(&marketplace.GetUserAddressArgs{Wallet: walletKey})
			return writeDerived(cmd, opts, marketplace.KindUser, address, bump, err)
		},
	}
	user.Flags().StringVar(&wallet, "wallet", "", "wallet address")

	var owner string
	var projectIndex uint64
	project := &cobra.Command{
		Use:   "project",
		Short: "Derive a project account from its owning user account and index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userKey, err := parseKey("user", owner)
			if err != nil {
				return err
			}

			address, bump, err := opts.program.GetProjectAddress(&marketplace.GetProjectAddressArgs{
				User:  userKey,
				Index: projectIndex,
			})
			return writeDerived(cmd, opts, marketplace.KindProject, address, bump, err)
		},
	}
	project.Flags().StringVar(&owner, "user", "", "owning user account address")
	project.Flags().Uint64Var(&projectIndex, "index", 0, "project index")

	var applicant, applicationProject string
	application := &cobra.Command{
		Use:   "application",
		Short: "Derive the application of a user account to a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applicantKey, err := parseKey("applicant", applicant)
			if err != nil {
				return err
			}
			projectKey, err := parseKey("project", applicationProject)
			if err != nil {
				return err
			}

			address, bump, err := opts.program.GetApplicationAddress(&marketplace.GetApplicationAddressArgs{
				Applicant: applicantKey,
				Project:   projectKey,
			})
			return writeDerived(cmd, opts, marketplace.KindApplication, address, bump, err)
		},
	}
	application.Flags().StringVar(&applicant, "applicant", "", "applicant user account address")
	application.Flags().StringVar(&applicationProject, "project", "", "project address")

	var escrowProject string
	escrow := &cobra.Command{
		Use:   "escrow",
		Short: "Derive the escrow of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectKey, err := parseKey("project", escrowProject)
			if err != nil {
				return err
			}

			address, bump, err := opts.program.GetEscrowAddress(&marketplace.GetEscrowAddressArgs{Project: projectKey})
			return writeDerived(cmd, opts, marketplace.KindEscrow, address, bump, err)
		},
	}
	escrow.Flags().StringVar(&escrowProject, "project", "", "project address")

	cmd.AddCommand(user, project, application, escrow)
	return cmd
}

func writeDerived(cmd *cobra.Command, opts *rootOptions, kind string, address ed25519.PublicKey, bump uint8, err error) error {
	if err != nil {
		return err
	}

	derived := &derivedAddress{
		Kind:    kind,
		Address: base58.Encode(address),
		Bump:    bump,
	}
	return opts.output(cmd.OutOrStdout(), fmt.Sprintf("%s %s (bump %d)", derived.Kind, derived.Address, derived.Bump), derived)
}

func parseKey(name, value string) (ed25519.PublicKey, error) {
	if len(value) == 0 {
		return nil, errors.Errorf("--%s is required", name)
	}

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("--%s is not a public key", name)
	}
	return decoded, nil
}
