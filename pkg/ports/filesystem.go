package ports

// FileSystem is where snapshot strips and debug artifacts are written.
type FileSystem interface {
	// WriteFile replaces path with data, creating parent directories.
	// Readers never observe a partially written file.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and its parents.
	MkdirAll(path string) error
}
