package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/entity"
)

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the menu with station routing and recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printMenu(cmd.OutOrStdout(), catalog.Default())
		},
	}
}

func printMenu(w io.Writer, c catalog.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tPRICE\tCATEGORY\tINGREDIENTS")
	for _, item := range c.Menu() {
		category := entity.ParseCategory(item.Category).String()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Price.StringFixed(2), category, ingredientList(c, item))
	}
	return tw.Flush()
}

func ingredientList(c catalog.Catalog, item *entity.MenuItem) string {
	recipe := item.Recipe
	if recipe == nil {
		recipe, _ = c.RecipeFor(item.Name)
	}
	if recipe == nil {
		return item.Key()
	}
	parts := make([]string, 0, len(recipe.Ingredients))
	for name, qty := range recipe.Ingredients {
		parts = append(parts, fmt.Sprintf("%s x%d", name, qty))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
