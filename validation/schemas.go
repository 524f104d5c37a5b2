package validation

import "github.com/MrEthical07/finserve/profile"

// Field names shared by drafts and schemas.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldEmail           = "email"
	FieldPhoneNumber     = "phoneNumber"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldRiskTolerance   = "riskTolerance"
	FieldInvestmentGoals = "investmentGoals"
	FieldNotifyEmail     = "notificationPreferences.email"
	FieldNotifySMS       = "notificationPreferences.sms"
	FieldNotifyPush      = "notificationPreferences.push"
	FieldTheme           = "theme"
)

// PersonalInfoSchema checks names, email, phone number and the matching
// password pair.
func PersonalInfoSchema() Schema {
	return Schema{
		Step: StepPersonalInfo,
		Fields: []FieldRules{
			Field(FieldFirstName,
				Required("First name is required"),
				Length(2, -1, "First name must be at least 2 characters"),
				Length(0, 50, "First name must be less than 50 characters"),
			),
			Field(FieldLastName,
				Required("Last name is required"),
				Length(2, -1, "Last name must be at least 2 characters"),
				Length(0, 50, "Last name must be less than 50 characters"),
			),
			Field(FieldEmail,
				Required("Email is required"),
				Email("Please enter a valid email address"),
			),
			Field(FieldPhoneNumber,
				Required("Phone number is required"),
				MustMatch(`^\d{10}$`, "Please enter a 10-digit phone number (e.g., 5550123456)"),
			),
			Field(FieldPassword,
				Required("Password is required"),
				Length(8, -1, "Password must be at least 8 characters"),
				MustMatch(`[a-z]`, "Password must contain a lowercase letter"),
				MustMatch(`[A-Z]`, "Password must contain an uppercase letter"),
				MustMatch(`\d`, "Password must contain a number"),
				MustMatch(`[^a-zA-Z0-9]`, "Password must contain a special character"),
			),
			Field(FieldConfirmPassword,
				Required("Please confirm your password"),
				EqualsField(FieldPassword, "Passwords must match"),
			),
		},
	}
}

// RiskProfileSchema checks risk tolerance and one to five known goals.
func RiskProfileSchema() Schema {
	return Schema{
		Step: StepRiskProfile,
		Fields: []FieldRules{
			Field(FieldRiskTolerance,
				Required("Risk tolerance is required"),
				OneOf(profile.RiskTolerances(), "Please select a valid risk tolerance"),
			),
			Field(FieldInvestmentGoals,
				Required("Investment goals are required"),
				Count(1, -1, "Please select at least one investment goal"),
				Count(0, profile.MaxInvestmentGoals, "You can select up to 5 investment goals"),
				EachOneOf(profile.Goals(), "Please select valid investment goals"),
			),
		},
	}
}

func PreferencesSchema() Schema {
	return Schema{
		Step: StepPreferences,
		Fields: []FieldRules{
			Field(FieldNotifyEmail, Boolean(FieldNotifyEmail+" is a required field")),
			Field(FieldNotifySMS, Boolean(FieldNotifySMS+" is a required field")),
			Field(FieldNotifyPush, Boolean(FieldNotifyPush+" is a required field")),
			Field(FieldTheme,
				Required("Theme selection is required"),
				OneOf(profile.Themes(), "Please select a valid theme"),
			),
		},
	}
}
