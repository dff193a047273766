package config

// NewFitbitForTest creates a Fitbit config for testing purposes
func NewFitbitForTest(clientID, clientSecret, redirectURL string, rate float64) *Fitbit {
	return &Fitbit{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		scopes:       "activity sleep",
		apiURL:       "http://127.0.0.1/api",
		tokenURL:     "http://127.0.0.1/token",
		authURL:      "http://127.0.0.1/authorize",
		rate:         rate,
	}
}

// NewLampForTest creates a Lamp config for testing purposes
func NewLampForTest(baseURL, auth string) *Lamp {
	return &Lamp{baseURL: baseURL, auth: auth}
}

// NewAppForTest creates an App config pointing at path
func NewAppForTest(path string) *App {
	return &App{path: path}
}
