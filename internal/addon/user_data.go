package addon

import "github.com/mediafusion/core/internal/model"

// ProviderCreds covers every auth-strategy family a configured debrid
// provider might need: an API key/token, or a username and password.
// Which fields matter depends on the provider's debrid.AuthStrategy.
type ProviderCreds struct {
	APIKey   string `json:"key,omitempty"`
	Username string `json:"user,omitempty"`
	Password string `json:"pass,omitempty"`
}

// UserData is the per-request configuration carried as a URL-escaped JSON
// route segment, the same convention the teacher used for its flat
// RD/Prowlarr fields, generalized to a full preference vector plus
// multi-provider credentials since this addon fans out across roughly ten
// debrid backends instead of one.
type UserData struct {
	Preferences    model.UserPreferenceVector `json:"prefs"`
	ChosenProvider string                      `json:"provider"`
	ProviderCreds  map[string]ProviderCreds    `json:"creds,omitempty"`
}

// NewUserDataWithDefaults returns usable defaults for a deployment that
// relies entirely on environment-configured providers and preferences.
func NewUserDataWithDefaults() *UserData {
	return &UserData{Preferences: model.DefaultPreferenceVector()}
}

// ApplyDefaults fills in a zero-value Preferences with the default vector,
// leaving any value the caller set alone.
func (u *UserData) ApplyDefaults() {
	if u.Preferences.Version == 0 {
		u.Preferences = model.DefaultPreferenceVector()
	}
	if u.ProviderCreds == nil {
		u.ProviderCreds = map[string]ProviderCreds{}
	}
}
