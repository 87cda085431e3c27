package employees

// Employee is the resolution target for extensions and phone numbers.
// Owned by the HR side of the CRM; read-only here.
type Employee struct {
	ID          int64  `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Extension   string `json:"extension" db:"extension"`
	Phone       string `json:"phone" db:"phone"`
}
