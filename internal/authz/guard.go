package authz

import "github.com/noah-isme/edu-platform-api/internal/models"

// Decision is the terminal outcome of guarding a route.
type Decision string

const (
	// DecisionLoading means identity resolution has not settled yet; no
	// routing decision may be taken in this state.
	DecisionLoading Decision = "LOADING"
	// DecisionAuthorized grants access to the requested view.
	DecisionAuthorized Decision = "AUTHORIZED"
	// DecisionRedirectLogin routes an unauthenticated caller to login.
	DecisionRedirectLogin Decision = "REDIRECT_LOGIN"
	// DecisionRedirectProfile routes a role-less profile to completion.
	DecisionRedirectProfile Decision = "REDIRECT_PROFILE"
	// DecisionRedirectDenied is terminal denial for an insufficient role.
	DecisionRedirectDenied Decision = "REDIRECT_DENIED"
)

// Guard turns a settled identity resolution into a routing decision. It
// owns the redirect/terminal choice only; rendering and transport belong
// to the caller.
type Guard struct {
	required []models.Role
}

// NewGuard builds a guard for the given required roles. No roles means the
// route is open to any resolved identity.
func NewGuard(required ...models.Role) *Guard {
	return &Guard{required: required}
}

// Evaluate maps a resolution outcome to a decision. The settled flag keeps
// the guard in LOADING until resolution completes, so a legitimately
// authenticating caller never sees a premature denial.
func (g *Guard) Evaluate(identity models.Identity, settled bool) Decision {
	if !settled {
		return DecisionLoading
	}
	switch identity.State {
	case models.IdentityUnauthenticated:
		return DecisionRedirectLogin
	case models.IdentityIncomplete:
		return DecisionRedirectProfile
	}
	if IsAuthorizedAny(identity, g.required...) {
		return DecisionAuthorized
	}
	return DecisionRedirectDenied
}
