package models

// GeoDTO mirrors Geo on the wire.
type GeoDTO struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// AddressDTO mirrors Address on the wire. The Geo pointer distinguishes
// "geo omitted" from "geo present"; partial updates rely on that.
type AddressDTO struct {
	Street  string  `json:"street"`
	Suite   string  `json:"suite"`
	City    string  `json:"city"`
	Zipcode string  `json:"zipcode"`
	Geo     *GeoDTO `json:"geo,omitempty"`
}

// CompanyDTO mirrors Company on the wire.
type CompanyDTO struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	Bs          string `json:"bs"`
}

// UserDTO is the request/response representation of a user profile. Nested
// sections are pointers: a nil section in an update payload means "leave the
// stored section untouched".
type UserDTO struct {
	ID       uint        `json:"id"`
	Name     string      `json:"name" validate:"required,max=255"`
	Username string      `json:"username" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Address  *AddressDTO `json:"address,omitempty"`
	Phone    string      `json:"phone,omitempty" validate:"omitempty,max=50"`
	Website  string      `json:"website,omitempty" validate:"omitempty,max=255"`
	Company  *CompanyDTO `json:"company,omitempty"`
}

// UserInfo is the identity summary returned alongside a token.
type UserInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// JwtResponse is the payload returned by register and login.
type JwtResponse struct {
	Token string   `json:"token"`
	Type  string   `json:"type"`
	User  UserInfo `json:"user"`
}
