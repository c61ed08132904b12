package driven

// ConfigStore persists configuration values under dotted keys such as
// "retrieval.top_k". Values keep the type they were stored with: string,
// int64, float64 or bool. Interpreting them is the settings service's job.
type ConfigStore interface {
	// Lookup returns the stored value for key.
	Lookup(key string) (any, bool)

	// Set stores value under key and persists it immediately.
	Set(key string, value any) error

	// Unset removes key and persists the change. Removing a missing key is not an error.
	Unset(key string) error

	// Path returns where the configuration lives, or "" when it is not on disk.
	Path() string
}
