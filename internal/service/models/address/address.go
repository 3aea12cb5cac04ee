package address

import "encoding/json"

// Address is a snapshot of an invoice or delivery address as stored on
// the order row. It carries no link back to the live address book.
type Address struct {
	ID         int64  `json:"id,omitempty"`
	Salutation string `json:"salutation,omitempty"`
	Firstname  string `json:"firstname"`
	Lastname   string `json:"lastname"`
	Company    string `json:"company,omitempty"`
	Street     string `json:"street_no"`
	ZIP        string `json:"zip"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// IsEmpty reports whether the address carries no data at all.
// An empty delivery address means "same as invoice address".
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// FromJSON decodes a stored address column. Invalid JSON degrades to an
// empty address.
func FromJSON(data []byte) Address {
	if len(data) == 0 {
		return Address{}
	}

	var a Address
	if err := json.Unmarshal(data, &a); err != nil {
		return Address{}
	}

	return a
}

// ToJSON encodes the address for persistence.
func (a Address) ToJSON() []byte {
	data, err := json.Marshal(a)
	if err != nil {
		return []byte("{}")
	}

	return data
}
