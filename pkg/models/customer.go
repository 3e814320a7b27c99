package models

import (
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
)

// Address is a customer mailing address with warehouse-column JSON keys.
type Address struct {
	StreetAddress string `json:"STREET_ADDRESS"`
	City          string `json:"CITY"`
	State         string `json:"STATE"`
	PostalCode    string `json:"POSTALCODE"`
}

// EmergencyContact is a customer's emergency contact.
type EmergencyContact struct {
	Name  string `json:"NAME"`
	Phone string `json:"PHONE"`
}

// Customer holds purchaser information shared by tickets and passes.
// Optional fields are pointers so missing values serialize as JSON null,
// which is what the warehouse's semi-structured columns expect.
type Customer struct {
	Name             string
	Address          *Address
	Phone            *string
	Email            *string
	EmergencyContact *EmergencyContact
}

// GenerateCustomer produces a customer with realistic identity fields.
// Each optional field is independently missing 20% of the time.
func GenerateCustomer(rng *rand.Rand, faker *gofakeit.Faker) Customer {
	c := Customer{Name: faker.Name()}

	if rng.Float64() > 0.2 {
		c.Address = &Address{
			StreetAddress: faker.Street(),
			City:          faker.City(),
			State:         faker.StateAbr(),
			PostalCode:    faker.Zip(),
		}
	}
	if rng.Float64() > 0.2 {
		phone := faker.PhoneFormatted()
		c.Phone = &phone
	}
	if rng.Float64() > 0.2 {
		email := faker.Email()
		c.Email = &email
	}
	if rng.Float64() > 0.2 {
		c.EmergencyContact = &EmergencyContact{
			Name:  faker.Name(),
			Phone: faker.PhoneFormatted(),
		}
	}
	return c
}
