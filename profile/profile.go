package profile

import (
	"slices"
	"time"
)

// RiskTolerance is the investor's self-declared appetite for risk.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// Theme is the preferred dashboard theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// MaxInvestmentGoals bounds the investment goal multi-select.
const MaxInvestmentGoals = 5

var goalCatalog = []string{
	"retirement",
	"wealth-building",
	"income-generation",
	"tax-optimization",
	"education-funding",
	"real-estate",
	"emergency-fund",
	"charitable-giving",
}

// Goals returns the investment goal catalog in display order.
func Goals() []string {
	return slices.Clone(goalCatalog)
}

// IsGoal reports whether goal is part of the catalog.
func IsGoal(goal string) bool {
	return slices.Contains(goalCatalog, goal)
}

// RiskTolerances returns the accepted risk tolerance values.
func RiskTolerances() []string {
	return []string{string(RiskLow), string(RiskMedium), string(RiskHigh)}
}

// Themes returns the accepted theme values.
func Themes() []string {
	return []string{string(ThemeLight), string(ThemeDark)}
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

type Preferences struct {
	RiskTolerance           RiskTolerance           `json:"riskTolerance"`
	InvestmentGoals         []string                `json:"investmentGoals"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences"`
	Theme                   Theme                   `json:"theme"`
}

// UserProfile is the identity record held by an authenticated session.
type UserProfile struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phoneNumber"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"createdAt"`
	IsOnboarded bool        `json:"isOnboarded"`
}

// IsZero reports whether p carries no identity. A session holding a zero
// profile is treated as unauthenticated.
func (p UserProfile) IsZero() bool {
	return p.ID == "" && p.Email == ""
}

// Clone returns a copy that shares no mutable state with p.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.Preferences.InvestmentGoals = slices.Clone(p.Preferences.InvestmentGoals)
	return out
}

// Patch is a partial profile update. Nil fields are left untouched. A non-nil
// Preferences replaces the whole preferences block.
type Patch struct {
	FirstName   *string      `json:"firstName,omitempty"`
	LastName    *string      `json:"lastName,omitempty"`
	Email       *string      `json:"email,omitempty"`
	PhoneNumber *string      `json:"phoneNumber,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	IsOnboarded *bool        `json:"isOnboarded,omitempty"`
}

// Apply merges patch onto a copy of p and returns the result.
func (p UserProfile) Apply(patch Patch) UserProfile {
	out := p.Clone()
	if patch.FirstName != nil {
		out.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		out.LastName = *patch.LastName
	}
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		out.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Preferences != nil {
		out.Preferences = *patch.Preferences
		out.Preferences.InvestmentGoals = slices.Clone(patch.Preferences.InvestmentGoals)
	}
	if patch.IsOnboarded != nil {
		out.IsOnboarded = *patch.IsOnboarded
	}
	return out
}
