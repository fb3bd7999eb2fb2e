package inventory

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Kind string

const (
	KindIn  Kind = "in"
	KindOut Kind = "out"
)

// Item is a stock keeping unit of a school. Its SKU is unique within the school.
type Item struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string    `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_items_school_sku"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	SKU       string    `json:"sku" gorm:"size:50;not null;uniqueIndex:idx_items_school_sku"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Unit      string    `json:"unit" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockTransaction logs a stock movement of an Item.
type StockTransaction struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID   string    `json:"school_id" gorm:"size:36;not null;index"`
	ItemID     string    `json:"item_id" gorm:"size:36;not null;index"`
	Kind       Kind      `json:"kind" gorm:"size:3;not null"`
	Quantity   int       `json:"quantity" gorm:"not null"`
	Note       string    `json:"note"`
	RecordedBy string    `json:"recorded_by" gorm:"size:36"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewItem struct {
	Name     string `json:"name" validate:"required,max=255"`
	SKU      string `json:"sku" validate:"required,max=50"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Unit     string `json:"unit" validate:"max=20"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.SKU = core.CleanString(ni.SKU)
	ni.Unit = core.CleanString(ni.Unit)
	return validate.Struct(ni)
}

type NewTransaction struct {
	ItemID   string `json:"item_id" validate:"required"`
	Kind     Kind   `json:"kind" validate:"required,oneof=in out"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Note     string `json:"note"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.ItemID = core.CleanString(nt.ItemID)
	nt.Note = core.CleanString(nt.Note)
	return validate.Struct(nt)
}

type ItemFilter struct {
	Search   string `query:"search"` // name or sku
	LowStock int    `query:"low_stock"`
}
