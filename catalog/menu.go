package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Concept is a brand sharing the kitchen.
type Concept struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Category groups products under a concept.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ConceptID string `json:"conceptId"`
}

// Menu is a full catalog document.
type Menu struct {
	Concepts   []Concept  `json:"concepts"`
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}

//go:embed menu.json
var seedMenu []byte

// SeedMenu returns the menu a fresh store starts with.
func SeedMenu() (Menu, error) {
	var m Menu
	if err := json.Unmarshal(seedMenu, &m); err != nil {
		return Menu{}, fmt.Errorf("decode seed menu: %w", err)
	}
	return m, nil
}

// CategoriesFor lists the category ids belonging to a concept.
func (m Menu) CategoriesFor(conceptID string) []string {
	var ids []string
	for _, c := range m.Categories {
		if c.ConceptID == conceptID {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
