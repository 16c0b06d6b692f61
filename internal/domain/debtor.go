package domain

import "time"

// Category selects the grace periods that apply to a debtor's cases.
type Category string

const (
	CategoryIndividual Category = "individual"
	CategoryCompany    Category = "company"
)

func (c Category) Valid() bool {
	return c == CategoryIndividual || c == CategoryCompany
}

type Debtor struct {
	ID       int64
	TenantID int64
	Category Category

	Name  string
	Email string

	// HasUserAccount controls whether a registration invitation is sent
	// alongside the first notice.
	HasUserAccount bool

	CreatedAt time.Time
}
