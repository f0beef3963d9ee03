// Package pages holds the full-page Templ components. Handlers render them
// through middleware.Render, which injects the layout data they read.
package pages

import "time"

// LoginData feeds the sign-in and sign-up pages, which share one component.
type LoginData struct {
	Mode       string // "login" or "signup"
	Action     string
	LoginPath  string
	SignupPath string
	Email      string
	Redirect   string
	Error      string
	Sent       bool
}

// IsSignup reports whether the page creates an account.
func (d LoginData) IsSignup() bool {
	return d.Mode == "signup"
}

// Title is the page heading.
func (d LoginData) Title() string {
	if d.IsSignup() {
		return "Create your account"
	}
	return "Sign in"
}

// OnboardingData feeds the business setup form.
type OnboardingData struct {
	Action      string
	Industries  []string
	Name        string
	Phone       string
	Website     string
	Industry    string
	Description string
	Error       string
}

// DashboardData feeds the dashboard.
type DashboardData struct {
	BusinessName string
	Phone        string
	Website      string
	Industry     string
	Description  string
	CreatedAt    time.Time
}
