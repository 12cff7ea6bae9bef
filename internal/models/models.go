package models

import "time"

// Contract is a tenant boundary. Key is the opaque credential callers present
// to register and manage users; it is random and never derived from AppName.
type Contract struct {
	ContractID string    `json:"-"`
	Key        string    `json:"key"`
	AppName    string    `json:"app_name"`
	Created    time.Time `json:"created_at"`
}

// User is the sanitized view of a registered user. The credential hash never
// leaves the store except on the login path.
type User struct {
	UserID     string    `json:"user_id"`
	ContractID string    `json:"-"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Created    time.Time `json:"created_at"`
}
