// Package businesses owns the business record a user creates during
// onboarding. Its existence is what separates a signed-in user who still
// needs onboarding from one who may use the dashboard.
package businesses

import "time"

// Business is an onboarded business profile. One per owner by convention.
type Business struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website,omitempty"`
	Industry    string    `json:"industry"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// msgOnboarded is flashed on the dashboard after onboarding.
const msgOnboarded = "Your business is set up. Welcome to SmartText Connect!"

// Industries offered by the onboarding form.
var Industries = []string{
	"restaurant",
	"retail",
	"healthcare",
	"home_services",
	"professional_services",
	"beauty",
	"other",
}

// --- Request DTOs (bound from HTTP requests) ---

// OnboardingRequest holds the data submitted by the onboarding form.
type OnboardingRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=2,max=120"`
	Phone       string `json:"phone" form:"phone" validate:"required,e164"`
	Website     string `json:"website" form:"website" validate:"omitempty,url,max=255"`
	Industry    string `json:"industry" form:"industry" validate:"required,oneof=restaurant retail healthcare home_services professional_services beauty other"`
	Description string `json:"description" form:"description" validate:"max=500"`
}

// --- Service Input DTOs (passed from handler to service) ---

// OnboardInput is the validated input for creating a business.
type OnboardInput struct {
	Name        string
	Phone       string
	Website     string
	Industry    string
	Description string
}

// Page is one page of the admin business report.
type Page struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
}
