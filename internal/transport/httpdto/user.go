package httpdto

import (
	"time"

	"medishare/internal/domain/user"
)

type AddressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type ContactPersonDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// AddressPatchDTO allows partial address updates.
type AddressPatchDTO struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Pincode *string `json:"pincode"`
}

type ContactPersonPatchDTO struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdateProfileRequest is used for PUT /users/profile
type UpdateProfileRequest struct {
	Email              *string                `json:"email"`
	FullName           *string                `json:"fullName"`
	MobileNumber       *string                `json:"mobileNumber"`
	OrganizationName   *string                `json:"organizationName"`
	Address            *AddressPatchDTO       `json:"address"`
	ContactPerson      *ContactPersonPatchDTO `json:"contactPerson"`
	RegistrationNumber *string                `json:"registrationNumber"`
	Website            *string                `json:"website"`
}

func (r UpdateProfileRequest) AddressPatch() *user.AddressPatch {
	if r.Address == nil {
		return nil
	}
	return &user.AddressPatch{
		Street:  r.Address.Street,
		City:    r.Address.City,
		State:   r.Address.State,
		Pincode: r.Address.Pincode,
	}
}

func (r UpdateProfileRequest) ContactPersonPatch() *user.ContactPersonPatch {
	if r.ContactPerson == nil {
		return nil
	}
	return &user.ContactPersonPatch{Name: r.ContactPerson.Name, Phone: r.ContactPerson.Phone}
}

// UserDTO represents a user in API responses. The password hash never leaves
// the service.
type UserDTO struct {
	ID                 string            `json:"id"`
	Email              string            `json:"email"`
	Role               string            `json:"role"`
	Name               string            `json:"name"`
	FullName           string            `json:"fullName,omitempty"`
	MobileNumber       string            `json:"mobileNumber,omitempty"`
	OrganizationName   string            `json:"organizationName,omitempty"`
	Address            *AddressDTO       `json:"address,omitempty"`
	ContactPerson      *ContactPersonDTO `json:"contactPerson,omitempty"`
	RegistrationNumber string            `json:"registrationNumber,omitempty"`
	Website            string            `json:"website,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func ToAddressDTO(a user.Address) AddressDTO {
	return AddressDTO{Street: a.Street, City: a.City, State: a.State, Pincode: a.Pincode}
}

// ToUserDTO shapes the profile by role: receivers carry organization
// details, donors and admins carry personal ones.
func ToUserDTO(u user.User) UserDTO {
	dto := UserDTO{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		Name:      u.DisplayName(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	switch u.Role {
	case user.RoleReceiver:
		addr := ToAddressDTO(u.Address)
		dto.OrganizationName = u.OrganizationName
		dto.Address = &addr
		dto.ContactPerson = &ContactPersonDTO{Name: u.ContactPerson.Name, Phone: u.ContactPerson.Phone}
		dto.RegistrationNumber = u.RegistrationNumber
		dto.Website = u.Website
	case user.RoleDonor:
		addr := ToAddressDTO(u.Address)
		dto.FullName = u.FullName
		dto.MobileNumber = u.MobileNumber
		dto.Address = &addr
	default:
		dto.FullName = u.FullName
		dto.MobileNumber = u.MobileNumber
	}
	return dto
}

func ToUserDTOs(users []user.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}
