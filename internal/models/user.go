package models

// Geo is the coordinate pair optionally embedded in an Address.
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Address is the optional postal section of a user profile. It is stored as a
// single nullable JSON column so that an absent section stays NULL in the row.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     *Geo   `json:"geo,omitempty"`
}

// Company is the optional employer section of a user profile.
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	Bs          string `json:"bs"`
}

// User is the public-facing profile record. It carries no authentication
// state; the AuthUser credential references it by UserID.
type User struct {
	ID       uint     `gorm:"primaryKey"`
	Name     string   `gorm:"not null;type:varchar(255)"`
	Username string   `gorm:"not null;type:varchar(100)"`
	Email    string   `gorm:"not null;type:varchar(255)"`
	Address  *Address `gorm:"serializer:json;type:text"`
	Phone    string   `gorm:"type:varchar(50)"`
	Website  string   `gorm:"type:varchar(255)"`
	Company  *Company `gorm:"serializer:json;type:text"`
}
