package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDonor    Role = "donor"
	RoleReceiver Role = "receiver"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleReceiver || r == RoleAdmin
}

// Address is stored inline on the users table.
type Address struct {
	Street  string `gorm:"type:varchar(255)"`
	City    string `gorm:"type:varchar(120);index"`
	State   string `gorm:"type:varchar(120)"`
	Pincode string `gorm:"type:varchar(16)"`
}

type ContactPerson struct {
	Name  string `gorm:"type:varchar(255)"`
	Phone string `gorm:"type:varchar(32)"`
}

// User represents the users table
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"type:varchar(16);not null;default:'donor';index"`

	FullName     string `gorm:"type:varchar(255)"`
	MobileNumber string `gorm:"type:varchar(32)"`

	OrganizationName   string        `gorm:"type:varchar(255)"`
	ContactPerson      ContactPerson `gorm:"embedded;embeddedPrefix:contact_"`
	RegistrationNumber string        `gorm:"type:varchar(120)"`
	Website            string        `gorm:"type:varchar(255)"`

	Address Address `gorm:"embedded;embeddedPrefix:address_"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName is the organization for receivers and the person otherwise.
func (u User) DisplayName() string {
	if u.Role == RoleReceiver && u.OrganizationName != "" {
		return u.OrganizationName
	}
	return u.FullName
}

// City returns the trimmed address city, empty when not set.
func (u User) City() string {
	return strings.TrimSpace(u.Address.City)
}

// AddressPatch carries a partial address update. Nil fields are left as is.
type AddressPatch struct {
	Street  *string
	City    *string
	State   *string
	Pincode *string
}

func (a *Address) Merge(p AddressPatch) {
	if p.Street != nil {
		a.Street = strings.TrimSpace(*p.Street)
	}
	if p.City != nil {
		a.City = strings.TrimSpace(*p.City)
	}
	if p.State != nil {
		a.State = strings.TrimSpace(*p.State)
	}
	if p.Pincode != nil {
		a.Pincode = strings.TrimSpace(*p.Pincode)
	}
}

type ContactPersonPatch struct {
	Name  *string
	Phone *string
}

func (c *ContactPerson) Merge(p ContactPersonPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		c.Phone = strings.TrimSpace(*p.Phone)
	}
}
