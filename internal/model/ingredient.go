package model

import "strings"

// IngredientRow is one line of the ingredient list.
type IngredientRow struct {
	Name       string `json:"name" yaml:"name"`
	Quantity   string `json:"quantity" yaml:"quantity"`
	Unit       string `json:"unit" yaml:"unit"`
	UnitLocked bool   `json:"unitLocked" yaml:"unitLocked"`
}

// Complete reports whether name, quantity and unit are all filled in.
func (r IngredientRow) Complete() bool {
	return r.Name != "" && r.Quantity != "" && r.Unit != ""
}

// Suggestion is one food returned by the nutrition database.
type Suggestion struct {
	ID          int64  `json:"fdcId" yaml:"fdcId"`
	Description string `json:"description" yaml:"description"`
}

// SuggestionSet is the result of one lookup. It is replaced wholesale per query.
type SuggestionSet struct {
	Query string       `json:"query"`
	Items []Suggestion `json:"items"`
}

// Matches reports whether name equals, ignoring case, one of the descriptions.
func (s *SuggestionSet) Matches(name string) bool {
	if s == nil {
		return false
	}
	for _, item := range s.Items {
		if strings.EqualFold(item.Description, name) {
			return true
		}
	}
	return false
}

// Units are the measurement units offered for an ingredient.
var Units = []string{
	"pcs", "piece", "cup", "teaspoon", "tablespoon", "gram", "milligram", "kilogram", "ounce", "pound",
	"liter", "milliliter", "clove", "slice", "can", "bunch", "pack", "stick", "strip", "pinch", "dash",
	"jar", "bottle", "head", "container", "bag", "carton", "ear", "fillet", "chunk", "unit", "sprig", "packet",
	"rib", "loaf", "stalk", "cupful", "gill", "barrel", "quart", "pint", "gallon", "fluid ounce", "dry ounce",
	"fluid dram", "imperial cup", "imperial pint", "imperial quart", "imperial gallon", "kiloliter", "centiliter",
}

func IsKnownUnit(unit string) bool {
	for _, u := range Units {
		if u == unit {
			return true
		}
	}
	return false
}
