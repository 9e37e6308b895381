package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Channel   string    `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient string    `gorm:"not null;index" json:"recipient"`
	Subject   string    `json:"subject"`
	OrderID   string    `gorm:"index" json:"order_id"`
	InvoiceID string    `json:"invoice_id"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationChannelEmail = "email"
	NotificationChannelSNS   = "sns"

	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)
