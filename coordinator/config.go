package coordinator

// Default values for the coordinator. If the values are not set, these values are used.
const (
	DefaultEnforceUniqueNames = false
)

// Config contains the configuration for the coordinator.
type Config struct {
	// EnforceUniqueNames makes join fail when the display name is already
	// used in the room. Otherwise the name check stays advisory.
	EnforceUniqueNames bool `mapstructure:"enforce_unique_names"`
}
