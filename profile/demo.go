package profile

import "time"

const (
	// DemoEmail is the login of the seed account baked into the mock backend.
	DemoEmail = "demo@finserve.com"
	// DemoPassword is the seed account password.
	DemoPassword = "demo123"
)

// DemoProfile returns the profile served for the seed account and for every
// current-user lookup.
func DemoProfile(createdAt time.Time) UserProfile {
	return UserProfile{
		ID:          "1",
		FirstName:   "Minfy",
		LastName:    "Tech",
		Email:       "minfy.tech@example.com",
		PhoneNumber: "+1-555-456-0123",
		Preferences: Preferences{
			RiskTolerance:   RiskMedium,
			InvestmentGoals: []string{"retirement", "wealth-building"},
			NotificationPreferences: NotificationPreferences{
				Email: true,
				SMS:   false,
				Push:  true,
			},
			Theme: ThemeLight,
		},
		CreatedAt:   createdAt,
		IsOnboarded: true,
	}
}
