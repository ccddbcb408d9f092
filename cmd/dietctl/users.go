package main

import (
	"context"
	"fmt"

	"github.com/klipach/dietapp/apiclient"
	"github.com/klipach/dietapp/contract"
	"github.com/spf13/cobra"
)

var (
	usersQuery   string
	usersRole    string
	usersGender  string
	deleteUserOK bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			filter := apiclient.UserFilter{Query: usersQuery, Role: usersRole, Gender: usersGender}
			res, err := load(ctx, s, func(ctx context.Context) (*contract.UsersResponse, error) {
				return s.client.Users(ctx, filter)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, "ID\tNAME\tEMAIL\tROLE\tGENDER\tLAST_ACTIVE")
			for _, u := range res.Users {
				fmt.Fprintf(s.out, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role, u.Gender, formatTime(u.LastActiveAt))
			}
			fmt.Fprintf(s.out, "Total: %d\n", res.Total)
			return nil
		})
	},
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <user-id> <USER|ADMIN>",
	Short: "Change the role of a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := contract.ParseUserRole(args[1])
		return withSession(cmd, func(ctx context.Context, s *session) error {
			u, err := load(ctx, s, func(ctx context.Context) (*contract.User, error) {
				return s.client.SetRole(ctx, args[0], role)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s is now %s\n", u.FullName(), u.Role)
			return nil
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user with all their data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteUserOK {
			return fmt.Errorf("deleting a user removes all their data, pass --yes to confirm")
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			_, err := load(ctx, s, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.client.DeleteUser(ctx, args[0])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Deleted user %s\n", args[0])
			return nil
		})
	},
}

func init() {
	usersListCmd.Flags().StringVar(&usersQuery, "q", "", "Match name or email")
	usersListCmd.Flags().StringVar(&usersRole, "role", "", "USER or ADMIN")
	usersListCmd.Flags().StringVar(&usersGender, "gender", "", "MALE, FEMALE or OTHER")
	usersDeleteCmd.Flags().BoolVar(&deleteUserOK, "yes", false, "Confirm deletion")
	usersCmd.AddCommand(usersListCmd, usersRoleCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}
