package model

import "strconv"

// Identified is implemented by collection elements.
type Identified interface {
	RecordID() string
}

// Transaction is a ledger entry shown in the admin console.
type Transaction struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Amount Amount `json:"amount"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

func (t Transaction) RecordID() string { return t.ID }

// User is a platform account as listed by administrators.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
	Plan   string `json:"plan"`
}

func (u User) RecordID() string { return strconv.FormatInt(u.ID, 10) }

// Booking is an advisor consultation request.
type Booking struct {
	ID     int64  `json:"id"`
	User   string `json:"user"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (b Booking) RecordID() string { return strconv.FormatInt(b.ID, 10) }

// Article is a published insight.
type Article struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Date        string `json:"date"`
	ReadTime    string `json:"readTime"`
	Status      string `json:"status"`
	Image       string `json:"image,omitempty"`
}

func (a Article) RecordID() string { return strconv.FormatInt(a.ID, 10) }

// Document is a report or uploaded file in a client vault.
type Document struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Type     string `json:"type"`
}

func (d Document) RecordID() string { return strconv.FormatInt(d.ID, 10) }

// Account is a linked external bank account.
type Account struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance Amount `json:"balance"`
	Type    string `json:"type"`
	Last4   string `json:"last4"`
}

func (a Account) RecordID() string { return strconv.FormatInt(a.ID, 10) }
