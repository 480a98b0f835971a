package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a v4 UUID when the caller left the primary key empty, so
// inserts behave the same on postgres and on the sqlite test driver.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error                { ensureID(&u.ID); return nil }
func (i *InventoryItem) BeforeCreate(*gorm.DB) error       { ensureID(&i.ID); return nil }
func (l *Listing) BeforeCreate(*gorm.DB) error             { ensureID(&l.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error                { ensureID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error            { ensureID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error               { ensureID(&o.ID); return nil }
func (o *OrderLineItem) BeforeCreate(*gorm.DB) error       { ensureID(&o.ID); return nil }
func (d *Delivery) BeforeCreate(*gorm.DB) error            { ensureID(&d.ID); return nil }
func (e *DeliveryStatusEvent) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
func (e *LedgerEvent) BeforeCreate(*gorm.DB) error         { ensureID(&e.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error         { ensureID(&e.ID); return nil }

// All lists every persisted model; tests feed it to AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&InventoryItem{},
		&Listing{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderLineItem{},
		&Delivery{},
		&DeliveryStatusEvent{},
		&LedgerEvent{},
		&OutboxEvent{},
	}
}
