package workflow

// EnvVar documents an environment variable codeforge reads.
type EnvVar struct {
	Name        string `json:"name" toon:"name"`
	Description string `json:"description" toon:"description"`
}

// EnvVars lists the environment variables codeforge honours.
func EnvVars() []EnvVar {
	return []EnvVar{
		{Name: "CODEFORGE_CONFIG", Description: "Path to the configuration file"},
		{Name: "CODEFORGE_FORMAT", Description: "Output format: text, markdown, json or toon"},
		{Name: "CODEFORGE_WORKERS", Description: "Number of files analyzed in parallel"},
		{Name: "CODEFORGE_LOG_LEVEL", Description: "Diagnostic log level: trace, debug, info, warn or error"},
		{Name: "CODEFORGE_<SECTION>__<KEY>", Description: "Override one config setting, e.g. CODEFORGE_GATES__MAX_CYCLOMATIC=15"},
		{Name: "NO_COLOR", Description: "Disable coloured output when set"},
	}
}
