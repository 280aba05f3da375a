package database

// Config contains the configuration for the database.
type Config struct {
	// LogQueries logs every mutation at debug level.
	LogQueries bool `mapstructure:"log_queries"`
}
