// Package types defines the shared data model for the memory store:
// content items, entities, facts, provenance, conflicts, and the
// bookkeeping rows that keep ingestion and maintenance idempotent.
package types

import "time"

// Polarity values for Fact.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
)

// Fact status values.
const (
	FactActive     = "active"
	FactSuperseded = "superseded"
	FactDisputed   = "disputed"
	FactProposed   = "proposed"
	FactExpired    = "expired"
)

// Fact scope values.
const (
	ScopeProject = "project"
	ScopeGlobal  = "global"
)

// Provenance strength values.
const (
	StrengthStated   = "stated"
	StrengthInferred = "inferred"
)

// Conflict status values.
const (
	ConflictOpen     = "open"
	ConflictResolved = "resolved"
)

// Operation status values.
const (
	OperationRunning   = "running"
	OperationCompleted = "completed"
	OperationFailed    = "failed"
)

// Schema health status values.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCorrupt  = "corrupt"
)

// EmbeddingDim is the fixed dimensionality of every stored embedding.
// Any change here is a breaking change to the embedding schema (see
// internal/embedding) and requires regenerating all stored vectors.
const EmbeddingDim = 384

// ContentItem is one ingested transcript delta.
type ContentItem struct {
	ID            int64
	Source        string
	SessionID     string
	TranscriptPath string
	ProjectPath   string
	OccurredAt    *time.Time
	IngestedAt    time.Time
	TextHash      string
	ByteLen       int
	RawText       string
	SourceMtime   string
	GitBranch     string
	Cwd           string
	HostVersion   string
	ThinkingLevel string
	MetadataJSON  string
}

// DeltaCursor is the resume point for one (session, transcript) pair.
type DeltaCursor struct {
	SessionID      string
	TranscriptPath string
	LastByteOffset int64
	UpdatedAt      time.Time
}

// Entity is a named thing referenced by facts.
type Entity struct {
	ID            int64
	Type          string
	CanonicalName string
	Slug          string
	FirstSeen     time.Time
	MentionCount  int
}

// EntityAlias records an alternate name for an entity.
type EntityAlias struct {
	ID         int64
	EntityID   int64
	Alias      string
	Source     string
	Confidence float64
}

// Fact is a subject-predicate-object tuple with truth-maintenance state.
type Fact struct {
	ID              int64
	SubjectEntityID int64
	Predicate       string
	ObjectEntityID  *int64
	ObjectLiteral   string
	Datatype        string
	Polarity        string
	ValidFrom       time.Time
	ValidTo         *time.Time
	Status          string
	Confidence      float64
	CreatedFrom     string
	CreatedAt       time.Time
	Scope           string
	ProjectPath     string
	EmbeddingJSON   string
}

// Provenance links a Fact to the ContentItem (and optional quote/attribution)
// that produced it.
type Provenance struct {
	ID                  int64
	FactID              int64
	ContentItemID       *int64
	Quote               string
	AttributionEntityID *int64
	Strength            string
}

// FactLink is a typed relation between two facts. The only link type
// emitted by the core resolver is "supersedes".
type FactLink struct {
	ID         int64
	FromFactID int64
	ToFactID   int64
	LinkType   string
}

// LinkSupersedes is the only FactLink type the resolver emits.
const LinkSupersedes = "supersedes"

// Conflict records an unresolved contradiction between two facts.
type Conflict struct {
	ID         int64
	FactAID    int64
	FactBID    int64
	Status     string
	DetectedAt time.Time
	Notes      string
}

// ToolCall is a per-ContentItem record of one tool invocation found in a
// transcript delta.
type ToolCall struct {
	ID            int64
	ContentItemID int64
	ToolName      string
	ToolInput     string
	ToolResult    string
	IsError       bool
	Timestamp     time.Time
}

// OperationProgress tracks a long-running maintenance or ingestion
// operation so crashed runs can be detected and reset.
type OperationProgress struct {
	ID             int64
	OperationType  string
	Scope          string
	Status         string
	TotalItems     int
	ProcessedItems int
	CheckpointData string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// SchemaHealth is one append-only validator run record.
type SchemaHealth struct {
	ID               int64
	CheckedAt        time.Time
	SchemaVersion    int
	ValidationStatus string
	IssuesJSON       string
	TableCountsJSON  string
}

// Extraction is the payload produced by the (external, out-of-scope) fact
// extractor and consumed by the Resolver.
type Extraction struct {
	Entities   []ExtractionEntity `json:"entities"`
	Facts      []ExtractionFact   `json:"facts"`
	Decisions  []interface{}      `json:"decisions,omitempty"`
	Signals    []interface{}      `json:"signals,omitempty"`
}

// ExtractionEntity is one entity mention in an Extraction payload.
type ExtractionEntity struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ExtractionFact is one candidate fact in an Extraction payload.
type ExtractionFact struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Polarity   string  `json:"polarity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Strength   string  `json:"strength,omitempty"`
	Quote      string  `json:"quote,omitempty"`
	Supersedes bool    `json:"supersedes,omitempty"`
	ScopeHint  string  `json:"scope_hint,omitempty"`
}

// ResolveCounters summarizes the effect of applying one Extraction.
type ResolveCounters struct {
	EntitiesCreated    int
	FactsCreated       int
	FactsSuperseded    int
	ConflictsCreated   int
	ProvenanceCreated  int
}

// IssueSeverity (validator finding severity).
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationIssue is one finding from the schema validator.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
