package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/klipach/dietapp/contract"
	"github.com/spf13/cobra"
)

var (
	recipesQuery    string
	recipesMealType string
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Browse recipes",
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var mealType contract.MealType
		if recipesMealType != "" {
			mealType = contract.ParseMealType(recipesMealType)
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			recipes, err := load(ctx, s, func(ctx context.Context) ([]contract.RecipeResponse, error) {
				return s.client.Recipes(ctx, recipesQuery, mealType)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, "ID\tNAME\tMEALS\tKCAL\tPREP_MIN")
			for _, r := range recipes {
				meals := make([]string, 0, len(r.MealTypes))
				for _, mt := range r.MealTypes {
					meals = append(meals, string(mt))
				}
				fmt.Fprintf(s.out, "%s\t%s\t%s\t%.0f\t%d\n", r.ID, r.Name, strings.Join(meals, ","), r.Calories, r.PrepTimeMinutes)
			}
			return nil
		})
	},
}

func init() {
	recipesListCmd.Flags().StringVar(&recipesQuery, "q", "", "Match name or ingredient")
	recipesListCmd.Flags().StringVar(&recipesMealType, "meal-type", "", "BREAKFAST, LUNCH, DINNER, ...")
	recipesCmd.AddCommand(recipesListCmd)
	rootCmd.AddCommand(recipesCmd)
}
