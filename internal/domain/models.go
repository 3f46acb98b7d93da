// Package domain defines the persistence models for messages and for the
// credentials and tokens behind bearer authentication. These types are mapped
// with GORM and form the core data layer of the service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message is one stored text message. IDs are assigned by the database in
// insertion order.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Content: NFC-normalized text, at most 32 characters.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Message struct {
	ID        uint           `json:"id"      gorm:"primaryKey;autoIncrement"`
	Content   string         `json:"content" gorm:"type:text;not null;index:idx_messages_content"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Grant kinds accepted by the token endpoint.
const (
	GrantUser   = "user"
	GrantClient = "client"
)

// Credential is a principal allowed to request tokens: a user (username and
// password) or a client (client id and secret). Only the bcrypt hash of the
// secret is stored.
type Credential struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	Kind       string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_credential_kind_principal,priority:1;check:kind IN ('user','client')"`
	Principal  string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_credential_kind_principal,priority:2"`
	SecretHash string    `gorm:"type:varchar(72);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the database table name for Credential.
func (Credential) TableName() string { return "credentials" }

// Token records an issued bearer token by the SHA-256 hex digest of its
// compact form. The raw token is never stored.
type Token struct {
	Digest    string    `gorm:"type:char(64);primaryKey"`
	Subject   string    `gorm:"type:varchar(128);not null;index"`
	Grant     string    `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for Token.
func (Token) TableName() string { return "tokens" }
