package kitchen

import (
	"strings"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Classifier derives a station category for a menu item.
type Classifier interface {
	Classify(item *entity.MenuItem) entity.Category
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(item *entity.MenuItem) entity.Category

func (f ClassifierFunc) Classify(item *entity.MenuItem) entity.Category { return f(item) }

// KeywordRule maps name fragments to a category.
type KeywordRule struct {
	Category entity.Category
	Keywords []string
}

// DefaultKeywordRules is evaluated top to bottom; the first matching rule wins.
var DefaultKeywordRules = []KeywordRule{
	{Category: entity.CategoryColdBeverage, Keywords: []string{"lemonade", "juice", "water", "iced", "cold", "smoothie", "soda", "shake"}},
	{Category: entity.CategoryHotBeverage, Keywords: []string{"coffee", "espresso", "cappuccino", "latte", "hot chocolate", "tea"}},
	{Category: entity.CategoryDessert, Keywords: []string{"cake", "dessert", "gulab", "pancake", "ice cream", "brownie", "pie"}},
	{Category: entity.CategoryGrill, Keywords: []string{"pizza", "burger", "pasta", "fries", "bread", "sandwich"}},
}

// KeywordClassifier honours the item's declared category label, then the
// keyword table, then Fallback.
type KeywordClassifier struct {
	Rules    []KeywordRule
	Fallback entity.Category
}

// NewKeywordClassifier uses DefaultKeywordRules with a GRILL fallback.
func NewKeywordClassifier() KeywordClassifier {
	return KeywordClassifier{Rules: DefaultKeywordRules, Fallback: entity.CategoryGrill}
}

func (k KeywordClassifier) Classify(item *entity.MenuItem) entity.Category {
	if item == nil {
		return k.Fallback
	}
	if c := entity.ParseCategory(item.Category); c.Known() {
		return c
	}
	name := entity.NormalizeName(item.Name)
	for _, rule := range k.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, kw) {
				return rule.Category
			}
		}
	}
	return k.Fallback
}
