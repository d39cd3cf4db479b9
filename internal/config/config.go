package config

// Config is the immutable process configuration, built once in main and
// passed into every component constructor. There is no global mutable state;
// values are resolved from the environment at construction.
type Config interface {
	EnvConfig
	StoreConfig
	DirectoryConfig
}

type mainConfig struct {
	EnvVars
	StoreVars
	DirectoryVars
}

func New() Config {
	return mainConfig{}
}
