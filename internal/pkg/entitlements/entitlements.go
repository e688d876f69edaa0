package entitlements

import (
	"github.com/fitcoach/fitcoach/app/models"
)

type Feature string

const (
	FeatureForms Feature = "forms"
)

// Allowed reports whether a user may use a feature. Every feature currently
// requires an active subscription, whatever the plan.
func Allowed(u *models.User, feature Feature) bool {
	if u == nil {
		return false
	}
	switch feature {
	case FeatureForms:
		return u.HasActiveSubscription()
	default:
		return false
	}
}
