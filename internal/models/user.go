// internal/models/user.go
package models

// User is one row of the users table. PasswordHash is a bcrypt hash and
// never leaves the auth package.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
