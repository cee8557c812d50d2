package models

import "time"

// User is a read projection of the external identity service, kept locally
// for mention resolution and username enrichment.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
