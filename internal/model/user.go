package model

// UserRole mirrors the role claim issued by the account service. Accounts
// themselves are owned by that service; only the claim is interpreted here.
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)
