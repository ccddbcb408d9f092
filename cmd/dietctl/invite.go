package main

import (
	"context"
	"fmt"

	"github.com/klipach/dietapp/contract"
	"github.com/spf13/cobra"
)

var (
	inviteEmail     string
	inviteFirstName string
	inviteLastName  string
	inviteRole      string
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage invitations",
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Invite a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := contract.InvitationRequest{Email: inviteEmail, FirstName: inviteFirstName, LastName: inviteLastName, Role: inviteRole}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			inv, err := load(ctx, s, func(ctx context.Context) (*contract.InvitationResponse, error) {
				return s.client.CreateInvitation(ctx, req)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Invited %s (%s), expires %s\n", inv.Email, inv.Role, formatTime(inv.ExpiresAt))
			fmt.Fprintln(s.out, inv.Link)
			return nil
		})
	},
}

var inviteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending invitations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			invs, err := load(ctx, s, s.client.Invitations)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, "ID\tEMAIL\tNAME\tROLE\tEXPIRES")
			for _, inv := range invs {
				fmt.Fprintf(s.out, "%s\t%s\t%s %s\t%s\t%s\n", inv.ID, inv.Email, inv.FirstName, inv.LastName, inv.Role, formatTime(inv.ExpiresAt))
			}
			return nil
		})
	},
}

var inviteRevokeCmd = &cobra.Command{
	Use:   "revoke <invitation-id>",
	Short: "Revoke a pending invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			_, err := load(ctx, s, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.client.RevokeInvitation(ctx, args[0])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Revoked invitation %s\n", args[0])
			return nil
		})
	},
}

func init() {
	inviteCreateCmd.Flags().StringVar(&inviteEmail, "email", "", "Email of the invited user")
	inviteCreateCmd.Flags().StringVar(&inviteFirstName, "first-name", "", "First name")
	inviteCreateCmd.Flags().StringVar(&inviteLastName, "last-name", "", "Last name")
	inviteCreateCmd.Flags().StringVar(&inviteRole, "role", "USER", "USER or ADMIN")
	_ = inviteCreateCmd.MarkFlagRequired("email")
	inviteCmd.AddCommand(inviteCreateCmd, inviteListCmd, inviteRevokeCmd)
	rootCmd.AddCommand(inviteCmd)
}
