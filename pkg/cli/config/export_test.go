package config

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output, sentryDSN string) *Logger {
	return &Logger{
		level:     level,
		format:    format,
		output:    output,
		sentryDSN: sentryDSN,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID, prefix, postgresDSN string) *Repository {
	return &Repository{
		backend:     backend,
		projectID:   projectID,
		databaseID:  databaseID,
		prefix:      prefix,
		postgresDSN: postgresDSN,
	}
}

// NewGatewayForTest creates a Gateway config for testing purposes
func NewGatewayForTest(provider, geminiProject, geminiLocation, openaiAPIKey string) *Gateway {
	return &Gateway{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: geminiLocation,
		openaiAPIKey:   openaiAPIKey,
	}
}

// NewTuningForTest creates a Tuning config for testing purposes
func NewTuningForTest(path string) *Tuning {
	return &Tuning{path: path}
}
