// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no client-side timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "notes-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ExtractionBackend identifies the text extraction tool used for PDFs.
type ExtractionBackend string

const (
	ExtractPdfcpu     ExtractionBackend = "pdfcpu"
	ExtractMarkitdown ExtractionBackend = "markitdown"
)

// ExtractionConfig holds settings for the text extraction stage.
type ExtractionConfig struct {
	// Backend selects the PDF extractor: pdfcpu (in-process) or markitdown (container).
	Backend ExtractionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Runtime is the preferred container runtime for markitdown: docker or
	// podman. Empty tries docker first.
	Runtime string `json:"runtime,omitempty" yaml:"runtime,omitempty" mapstructure:"runtime"`
}

// GenerationBackend identifies the generative AI service used for notes.
type GenerationBackend string

const (
	GenerateClaude GenerationBackend = "claude"
	GenerateVertex GenerationBackend = "vertex"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929", "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API. Unused by vertex,
	// which authenticates with application default credentials.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// GenerationConfig holds settings for the note generation stage.
type GenerationConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the generative service: claude or vertex.
	Backend GenerationBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Project is the Google Cloud project for the vertex backend.
	Project string `json:"project,omitempty" yaml:"project,omitempty" mapstructure:"project"`

	// Location is the Google Cloud region for the vertex backend (default us-central1).
	Location string `json:"location,omitempty" yaml:"location,omitempty" mapstructure:"location"`
}

// LayoutConfig holds page geometry settings for the exported document.
type LayoutConfig struct {
	// PageSize is a named page size: a4, letter, or legal.
	PageSize string `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// Margin is the uniform page margin in points.
	Margin float64 `json:"margin" yaml:"margin" mapstructure:"margin"`
}

// OutputConfig holds settings for writing rendered documents.
type OutputConfig struct {
	// Dir is the directory that receives rendered documents.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// SaveNotes also writes the generated notes next to the rendered document.
	SaveNotes bool `json:"save_notes" yaml:"save_notes" mapstructure:"save_notes"`
}

// HistoryConfig holds settings for the session history database.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Empty disables history.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	HTTP        HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Extraction  ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Generation  GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Layout      LayoutConfig     `json:"layout" yaml:"layout" mapstructure:"layout"`
	Output      OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	History     HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Concurrency int              `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}
