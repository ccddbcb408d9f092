package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/klipach/dietapp/apiclient"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/preferences"
	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a Firebase ID token for the next commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			return fmt.Errorf("--token is required")
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.prefs.Set(ctx, preferences.KeyToken, token); err != nil {
				return err
			}
			if apiURL != "" {
				if err := s.prefs.Set(ctx, preferences.KeyAPIURL, apiURL); err != nil {
					return err
				}
			}
			s.client = apiclient.New(s.apiURL, token)
			me, err := load(ctx, s, s.client.Me)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Zalogowano jako %s <%s> (%s)\n", me.FullName(), me.Email, me.Role)
			if me.Role != contract.RoleAdmin {
				fmt.Fprintln(s.out, "Uwaga: konto nie ma uprawnień administratora")
			}
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Logout})
			fmt.Fprintln(s.out, "Wylogowano")
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Firebase ID token (see cmd/gentoken)")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
