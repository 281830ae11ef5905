package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	repositoryURL  = "https://github.com/panbanda/codeforge"
	imageName      = "ghcr.io/panbanda/codeforge"

	// publisherMeta is the registry key for publisher-provided metadata.
	publisherMeta = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the MCP registry server.json document for codeforge.
type Manifest struct {
	Schema      string                    `json:"$schema"`
	Name        string                    `json:"name"`
	Title       string                    `json:"title,omitempty"`
	Description string                    `json:"description"`
	Version     string                    `json:"version"`
	WebsiteURL  string                    `json:"websiteUrl,omitempty"`
	Repository  *Repository               `json:"repository,omitempty"`
	Packages    []Package                 `json:"packages,omitempty"`
	Meta        map[string]PublisherTools `json:"_meta,omitempty"`
}

// Repository contains source repository information.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes how the registry runs the server.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument represents a command-line argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable is an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
	Default     string `json:"default,omitempty"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

// PublisherTools advertises the tool names in the registry entry.
type PublisherTools struct {
	Tools []string `json:"tools"`
}

// serverEnv lists the variables honoured by `codeforge mcp`.
var serverEnv = []EnvVariable{
	{Name: "CODEFORGE_CONFIG", Description: "Path to a codeforge.toml, .yaml or .json configuration file"},
	{Name: "CODEFORGE_WORKERS", Description: "Files analyzed in parallel, 0 uses the CPU count", Default: "0"},
	{Name: "CODEFORGE_LOG_LEVEL", Description: "Diagnostic log level written to stderr, unset is silent"},
}

// GenerateManifest creates the MCP server manifest JSON. The description
// names every tool the server registers.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/codeforge",
		Title:       "codeforge",
		Description: "Static analysis, code review, refactoring plans, test stubs and CI quality gates. Tools: " + strings.Join(toolNames, ", "),
		Version:     version,
		WebsiteURL:  repositoryURL,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{
			{
				RegistryType:         "oci",
				Identifier:           imageName + ":" + version,
				PackageArguments:     []Argument{{Type: "positional", Value: "mcp"}},
				EnvironmentVariables: serverEnv,
				Transport:            Transport{Type: "stdio"},
			},
		},
		Meta: map[string]PublisherTools{
			publisherMeta: {Tools: toolNames},
		},
	}

	return json.MarshalIndent(manifest, "", "  ")
}
