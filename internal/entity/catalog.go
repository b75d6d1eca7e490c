package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Menu is a catalog container of items.
type Menu struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CatalogItem is a committed menu item.
type CatalogItem struct {
	ID           uuid.UUID `json:"id"`
	MenuID       uuid.UUID `json:"menuId"`
	RestaurantID string    `json:"restaurantId"`
	Item         MenuItem  `json:"item"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CatalogScope narrows catalog lookups to one menu, or the whole restaurant when MenuID is nil.
type CatalogScope struct {
	RestaurantID string
	MenuID       *uuid.UUID
}

// NameKey is the case-insensitive comparison form of an item or menu name.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
