// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SessionRecord is one pipeline session as stored in the history database.
type SessionRecord struct {
	// ID is the session identifier assigned when a document is selected.
	ID string `json:"id" yaml:"id"`

	// FileName is the selected document's name.
	FileName string `json:"file_name" yaml:"file_name"`

	// MediaType is the selected document's media type.
	MediaType string `json:"media_type" yaml:"media_type"`

	// State is the pipeline state name at the time of recording (e.g. "ready").
	State string `json:"state" yaml:"state"`

	// FailedStage names the failed stage when State is "failed".
	FailedStage string `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`

	// Message is the last user-facing message (errors, validation notices).
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// ExtractedChars is the length of the extracted text in characters.
	ExtractedChars int `json:"extracted_chars" yaml:"extracted_chars"`

	// Notes is the generated notes text, once available.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// OutputName is the suggested file name of the last rendered document.
	OutputName string `json:"output_name,omitempty" yaml:"output_name,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
