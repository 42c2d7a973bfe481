package catalog

import (
	"sort"

	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Catalog resolves menu items and recipes. It is read-only once built.
type Catalog interface {
	MenuItem(id int) (*entity.MenuItem, bool)
	RecipeFor(dish string) (*entity.Recipe, bool)
	Menu() []*entity.MenuItem
}

// Module provides the default static catalog to Fx.
var Module = fx.Provide(func() Catalog { return Default() })

// Static is an in-memory Catalog.
type Static struct {
	items   map[int]*entity.MenuItem
	recipes map[string]*entity.Recipe
}

// NewStatic indexes the given items and recipes. Recipes attached to items are
// also indexed by the item's key.
func NewStatic(items []*entity.MenuItem, recipes []*entity.Recipe) *Static {
	s := &Static{
		items:   make(map[int]*entity.MenuItem, len(items)),
		recipes: make(map[string]*entity.Recipe, len(recipes)),
	}
	for _, r := range recipes {
		if r == nil {
			continue
		}
		s.recipes[entity.NormalizeName(r.Dish)] = r
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		s.items[item.ID] = item
		if item.Recipe != nil {
			s.recipes[item.Key()] = item.Recipe
		}
	}
	return s
}

func (s *Static) MenuItem(id int) (*entity.MenuItem, bool) {
	item, ok := s.items[id]
	return item, ok
}

func (s *Static) RecipeFor(dish string) (*entity.Recipe, bool) {
	r, ok := s.recipes[entity.NormalizeName(dish)]
	return r, ok
}

// Menu returns every item ordered by id.
func (s *Static) Menu() []*entity.MenuItem {
	out := make([]*entity.MenuItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ingredients lists every ingredient referenced by a recipe or, for items
// without one, the item's own key.
func Ingredients(c Catalog) []string {
	seen := make(map[string]struct{})
	for _, item := range c.Menu() {
		recipe, ok := c.RecipeFor(item.Key())
		if !ok {
			seen[item.Key()] = struct{}{}
			continue
		}
		for name := range recipe.Ingredients {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
