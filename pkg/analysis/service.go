package analysis

import "context"

// ArtifactState is the processing state of an uploaded document
type ArtifactState int

const (
	StateProcessing ArtifactState = iota
	StateActive
	StateFailed
)

func (s ArtifactState) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Artifact is a document held by the analysis service
type Artifact struct {
	Name     string
	URI      string
	MIMEType string
}

// Role identifies the speaker of a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of conversation history
type Turn struct {
	Role        Role
	Text        string
	Attachments []*Artifact
}

// Service is the remote analysis backend
type Service interface {
	// Upload sends the file at path and returns the stored artifact
	Upload(ctx context.Context, path, mimeType string) (*Artifact, error)
	// State reports whether the artifact is ready to be referenced
	State(ctx context.Context, artifact *Artifact) (ArtifactState, error)
	// Converse replays history and sends message, returning the reply text
	Converse(ctx context.Context, history []Turn, message string) (string, error)
	// Delete removes the artifact from the service
	Delete(ctx context.Context, artifact *Artifact) error
}
