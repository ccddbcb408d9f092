package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	dashWidgets string
	dashWater   int
	dashShowBMI bool
	dashUnits   string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Local dashboard layout",
}

var dashboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the dashboard configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			cfg, err := s.prefs.DashboardConfig(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(s.out)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		})
	},
}

var dashboardSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the dashboard configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			cfg, err := s.prefs.DashboardConfig(ctx)
			if err != nil {
				return err
			}
			updates := 0
			if cmd.Flags().Changed("widgets") {
				cfg.Widgets = nil
				for _, w := range strings.Split(dashWidgets, ",") {
					if w = strings.TrimSpace(w); w != "" {
						cfg.Widgets = append(cfg.Widgets, w)
					}
				}
				updates++
			}
			if cmd.Flags().Changed("water-goal") {
				if dashWater <= 0 {
					return fmt.Errorf("--water-goal must be > 0")
				}
				cfg.WaterGoalMl = dashWater
				updates++
			}
			if cmd.Flags().Changed("show-bmi") {
				cfg.ShowBMI = dashShowBMI
				updates++
			}
			if cmd.Flags().Changed("units") {
				if dashUnits != "metric" && dashUnits != "imperial" {
					return fmt.Errorf("--units must be metric or imperial")
				}
				cfg.Units = dashUnits
				updates++
			}
			if updates == 0 {
				return fmt.Errorf("set at least one flag")
			}
			if err := s.prefs.SaveDashboardConfig(ctx, cfg); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Updated %d dashboard value(s)\n", updates)
			return nil
		})
	},
}

func init() {
	dashboardSetCmd.Flags().StringVar(&dashWidgets, "widgets", "", "Comma separated widget list")
	dashboardSetCmd.Flags().IntVar(&dashWater, "water-goal", 0, "Default water goal in ml")
	dashboardSetCmd.Flags().BoolVar(&dashShowBMI, "show-bmi", true, "Show the BMI widget")
	dashboardSetCmd.Flags().StringVar(&dashUnits, "units", "metric", "metric or imperial")
	dashboardCmd.AddCommand(dashboardShowCmd, dashboardSetCmd)
	rootCmd.AddCommand(dashboardCmd)
}
