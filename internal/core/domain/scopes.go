package domain

// ScopeRegistry maps logical service names to the OAuth scope strings they
// require, plus the reverse mapping used to report which services a granted
// scope list enables. The registry is static configuration built once at
// startup and injected as a pure data dependency.
type ScopeRegistry struct {
	baseline []string
	services map[string][]string
	reverse  map[string]string
}

// googleWorkspaceScopes is the static service table for the Google Workspace
// provider. The userinfo scope set is the mandatory baseline needed to
// resolve the account email and is prefixed onto every service's scopes.
var googleWorkspaceScopes = map[string][]string{
	"userinfo": {
		"https://www.googleapis.com/auth/userinfo.email",
	},
	"gmail": {
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.compose",
		"https://www.googleapis.com/auth/gmail.send",
		"https://www.googleapis.com/auth/gmail.modify",
		"https://www.googleapis.com/auth/gmail.labels",
	},
	"drive": {
		"https://www.googleapis.com/auth/drive.readonly",
		"https://www.googleapis.com/auth/drive.file",
	},
	"calendar": {
		"https://www.googleapis.com/auth/calendar.readonly",
		"https://www.googleapis.com/auth/calendar.events",
	},
	"docs": {
		"https://www.googleapis.com/auth/documents",
		"https://www.googleapis.com/auth/documents.readonly",
	},
	"sheets": {
		"https://www.googleapis.com/auth/spreadsheets.readonly",
		"https://www.googleapis.com/auth/spreadsheets",
	},
	"chat": {
		"https://www.googleapis.com/auth/chat.messages.readonly",
		"https://www.googleapis.com/auth/chat.messages",
		"https://www.googleapis.com/auth/chat.spaces",
	},
}

// NewGoogleScopeRegistry builds the registry for the Google Workspace provider.
func NewGoogleScopeRegistry() *ScopeRegistry {
	return NewScopeRegistry(googleWorkspaceScopes, "userinfo")
}

// NewScopeRegistry builds a registry from a service table and the name of the
// baseline service. Two services claiming the same scope string is a
// configuration error; the reverse mapping is last-write-wins in that case.
func NewScopeRegistry(table map[string][]string, baselineService string) *ScopeRegistry {
	r := &ScopeRegistry{
		services: make(map[string][]string, len(table)),
		reverse:  make(map[string]string),
	}
	for service, scopes := range table {
		r.services[service] = append([]string(nil), scopes...)
		for _, scope := range scopes {
			r.reverse[scope] = service
		}
	}
	r.baseline = r.services[baselineService]
	return r
}

// ScopesFor returns the scope strings to request for a logical service,
// always prefixed with the baseline scopes. The second return value is false
// when the service is unknown.
func (r *ScopeRegistry) ScopesFor(service string) ([]string, bool) {
	scopes, ok := r.services[service]
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(r.baseline)+len(scopes))
	out = append(out, r.baseline...)
	for _, scope := range scopes {
		if !contains(out, scope) {
			out = append(out, scope)
		}
	}
	return out, true
}

// ServiceFor returns the logical service owning a scope string.
func (r *ScopeRegistry) ServiceFor(scope string) (string, bool) {
	service, ok := r.reverse[scope]
	return service, ok
}

// HasService reports whether a logical service is configured.
func (r *ScopeRegistry) HasService(service string) bool {
	_, ok := r.services[service]
	return ok
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
