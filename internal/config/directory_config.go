package config

type DirectoryConfig interface {
	GetDirectoryDSN() string
}

type DirectoryVars struct{}

var _ DirectoryConfig = DirectoryVars{}

// GetDirectoryDSN returns the connection string for the relational credential
// directory.
func (DirectoryVars) GetDirectoryDSN() string {
	return GetEnv("DIRECTORY_DSN", "postgres://localhost:5432/directory")
}
