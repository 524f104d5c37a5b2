package onboarding

import (
	"slices"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/validation"
)

// PersonalInfo is the step one draft.
type PersonalInfo struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (p PersonalInfo) Field(name string) validation.Value {
	switch name {
	case validation.FieldFirstName:
		return validation.String(p.FirstName)
	case validation.FieldLastName:
		return validation.String(p.LastName)
	case validation.FieldEmail:
		return validation.String(p.Email)
	case validation.FieldPhoneNumber:
		return validation.String(p.PhoneNumber)
	case validation.FieldPassword:
		return validation.String(p.Password)
	case validation.FieldConfirmPassword:
		return validation.String(p.ConfirmPassword)
	}
	return validation.Missing()
}

// RiskProfile is the step two draft.
type RiskProfile struct {
	RiskTolerance   string   `json:"riskTolerance"`
	InvestmentGoals []string `json:"investmentGoals"`
}

func (r RiskProfile) Field(name string) validation.Value {
	switch name {
	case validation.FieldRiskTolerance:
		return validation.String(r.RiskTolerance)
	case validation.FieldInvestmentGoals:
		return validation.List(r.InvestmentGoals)
	}
	return validation.Missing()
}

// Notifications leaves a channel nil until the user has made a choice.
type Notifications struct {
	Email *bool `json:"email"`
	SMS   *bool `json:"sms"`
	Push  *bool `json:"push"`
}

// Settings is the step three draft.
type Settings struct {
	Notifications Notifications `json:"notificationPreferences"`
	Theme         string        `json:"theme"`
}

func (s Settings) Field(name string) validation.Value {
	switch name {
	case validation.FieldNotifyEmail:
		return validation.OptionalBool(s.Notifications.Email)
	case validation.FieldNotifySMS:
		return validation.OptionalBool(s.Notifications.SMS)
	case validation.FieldNotifyPush:
		return validation.OptionalBool(s.Notifications.Push)
	case validation.FieldTheme:
		return validation.String(s.Theme)
	}
	return validation.Missing()
}

// Draft bundles the three step drafts.
type Draft struct {
	Step1 PersonalInfo `json:"step1"`
	Step2 RiskProfile  `json:"step2"`
	Step3 Settings     `json:"step3"`
}

// DefaultDraft mirrors the initial form values: medium risk, no goals yet,
// email and push notifications on, light theme.
func DefaultDraft() Draft {
	return Draft{
		Step2: RiskProfile{
			RiskTolerance:   string(profile.RiskMedium),
			InvestmentGoals: []string{},
		},
		Step3: Settings{
			Notifications: Notifications{
				Email: boolPtr(true),
				SMS:   boolPtr(false),
				Push:  boolPtr(true),
			},
			Theme: string(profile.ThemeLight),
		},
	}
}

func (d Draft) clone() Draft {
	out := d
	if d.Step2.InvestmentGoals != nil {
		out.Step2.InvestmentGoals = slices.Clone(d.Step2.InvestmentGoals)
	}
	out.Step3.Notifications = Notifications{
		Email: copyBool(d.Step3.Notifications.Email),
		SMS:   copyBool(d.Step3.Notifications.SMS),
		Push:  copyBool(d.Step3.Notifications.Push),
	}
	return out
}

// Request aggregates the drafts into one registration. The password comes
// from step one; preferences are assembled from steps two and three.
func (d Draft) Request() backend.RegistrationRequest {
	return backend.RegistrationRequest{
		FirstName:   d.Step1.FirstName,
		LastName:    d.Step1.LastName,
		Email:       d.Step1.Email,
		PhoneNumber: d.Step1.PhoneNumber,
		Password:    d.Step1.Password,
		Preferences: profile.Preferences{
			RiskTolerance:   profile.RiskTolerance(d.Step2.RiskTolerance),
			InvestmentGoals: slices.Clone(d.Step2.InvestmentGoals),
			NotificationPreferences: profile.NotificationPreferences{
				Email: deref(d.Step3.Notifications.Email),
				SMS:   deref(d.Step3.Notifications.SMS),
				Push:  deref(d.Step3.Notifications.Push),
			},
			Theme: profile.Theme(d.Step3.Theme),
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return boolPtr(*b)
}

func deref(b *bool) bool {
	return b != nil && *b
}
