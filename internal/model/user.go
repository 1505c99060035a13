package model

import "strings"

// RoleAdmin is the role string the PHP API uses for administrators.
const RoleAdmin = "admin"

// User is the signed-in user's profile as returned by userprofile.php.
type User struct {
	ID           ID     `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	NICNumber    string `json:"nicNumber,omitempty"`
	BatchNumber  string `json:"batchNumber,omitempty"`
	Role         string `json:"role"`
	UserType     string `json:"userType,omitempty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	IsActive     bool   `json:"isActive"`
}

// IsAdmin reports whether the role or user type names an administrator.
func (u *User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin) || strings.EqualFold(u.UserType, RoleAdmin)
}

// SignInData is the payload of a successful signin.php call.
type SignInData struct {
	SessionToken string `json:"session_token"`
	ID           ID     `json:"id"`
	UserID       ID     `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	UserType     string `json:"user_type"`
}

// ToUser maps the sign-in payload onto a User.
func (d SignInData) ToUser() User {
	id := d.ID
	if id == 0 {
		id = d.UserID
	}
	return User{
		ID:        id,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Role:      d.Role,
		UserType:  d.UserType,
		IsActive:  true,
	}
}

// SignInRequest is the payload for signing in.
type SignInRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// SignUpRequest is the payload for creating an account; the field names
// are the ones signup.php expects.
type SignUpRequest struct {
	FirstName       string `json:"first_name" binding:"required,max=100"`
	LastName        string `json:"last_name" binding:"required,max=100"`
	NICNumber       string `json:"nic_number" binding:"required,nic"`
	PhoneNumber     string `json:"phone_number" binding:"required,phone10"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// UpdateProfileRequest is the payload for editing one's own profile.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,phone10"`
}
