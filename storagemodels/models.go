/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/syncstore"
)

// Order is an identified, observable entity. Setters notify the
// embedded broadcaster so a synchronized store can persist field edits
// as single-item updates.
type Order struct {
	syncstore.ChangeBroadcaster `json:"-" dynamodbav:"-"`

	ID        int64           `json:"id" dynamodbav:"id"`
	Number    string          `json:"number" dynamodbav:"number"`
	Status    string          `json:"status" dynamodbav:"status"`
	Total     float64         `json:"total" dynamodbav:"total"`
	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"createdAt"`
}

// NewOrder creates a transient order stamped with the current time.
func NewOrder(number string, total float64) *Order {
	return &Order{
		Number:    number,
		Status:    "open",
		Total:     total,
		CreatedAt: strfmt.DateTime(time.Now().UTC()),
	}
}

func (o *Order) EntityID() int64      { return o.ID }
func (o *Order) SetEntityID(id int64) { o.ID = id }

// SetStatus updates the status and notifies observers.
func (o *Order) SetStatus(status string) {
	o.Status = status
	o.NotifyChanged()
}

// SetTotal updates the total and notifies observers.
func (o *Order) SetTotal(total float64) {
	o.Total = total
	o.NotifyChanged()
}

// Customer is identified but not observable: field edits only reach the
// backend through full save cycles.
type Customer struct {
	ID    int64  `json:"id" dynamodbav:"id"`
	Name  string `json:"name" dynamodbav:"name"`
	Email string `json:"email" dynamodbav:"email"`
}

func (c *Customer) EntityID() int64      { return c.ID }
func (c *Customer) SetEntityID(id int64) { c.ID = id }
