package dietplan

import (
	"math"
	"sort"
	"strings"

	"github.com/klipach/dietapp/contract"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ShoppingItems sums the ingredients of days fromDay..toDay (inclusive, zero means unbounded).
// Ingredients with the same name and unit are merged; the result is sorted alphabetically in Polish.
func ShoppingItems(days []contract.DietDay, fromDay, toDay int) []contract.ShoppingItem {
	type key struct{ name, unit string }
	index := map[key]int{}
	var items []contract.ShoppingItem

	for _, d := range days {
		if (fromDay > 0 && d.DayNumber < fromDay) || (toDay > 0 && d.DayNumber > toDay) {
			continue
		}
		for _, m := range d.Meals {
			for _, ing := range m.Ingredients {
				k := key{strings.ToLower(strings.TrimSpace(ing.Name)), strings.ToLower(strings.TrimSpace(ing.Unit))}
				if k.name == "" {
					continue
				}
				if i, ok := index[k]; ok {
					items[i].Quantity += ing.Quantity
					continue
				}
				index[k] = len(items)
				items = append(items, contract.ShoppingItem{
					Name:     strings.TrimSpace(ing.Name),
					Quantity: ing.Quantity,
					Unit:     strings.TrimSpace(ing.Unit),
				})
			}
		}
	}

	c := collate.New(language.Polish, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})
	for i := range items {
		items[i].Quantity = math.Round(items[i].Quantity*100) / 100
	}
	return items
}
