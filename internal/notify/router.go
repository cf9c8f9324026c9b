package notify

import "alertiq/internal/classify"

// Router maps an action type to the responsible team's address. Unknown
// actions fall back to the backend team.
type Router struct {
	BackendTeam string
	CodeTeam    string
	RehitTeam   string
}

// Recipient resolves the team address for an action.
func (r Router) Recipient(action classify.Action) string {
	switch action {
	case classify.ActionRehit:
		return r.RehitTeam
	case classify.ActionCode:
		return r.CodeTeam
	case classify.ActionBackend:
		return r.BackendTeam
	default:
		return r.BackendTeam
	}
}

// Fallback is the address that receives error notifications.
func (r Router) Fallback() string {
	return r.BackendTeam
}
