package models

// User is a local account holding the vendor credentials used on its behalf.
type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	PasswordHash   string `json:"-"` // don’t expose hash
	VendorEmail    string `json:"vendor_email"`
	VendorPassword string `json:"-"`
}
