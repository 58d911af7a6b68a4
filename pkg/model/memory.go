package model

import (
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// Namespace is the ordered path addressing a memory partition,
// e.g. ("profiles", userID).
type Namespace []string

// Root namespace categories. The root determines write semantics: profile
// records are upserted in place, episodic and knowledge records are
// appended.
const (
	NamespaceProfiles  = "profiles"
	NamespaceEpisodes  = "episodes"
	NamespaceKnowledge = "knowledge"
)

// ProfileNamespace addresses the per-user profile partition.
func ProfileNamespace(userID string) Namespace {
	return Namespace{NamespaceProfiles, userID}
}

// EpisodeNamespace addresses the per-user episodic partition.
func EpisodeNamespace(userID string) Namespace {
	return Namespace{NamespaceEpisodes, userID}
}

// KnowledgeNamespace addresses a shared domain-knowledge partition.
func KnowledgeNamespace(domain string) Namespace {
	return Namespace{NamespaceKnowledge, domain}
}

// Root returns the namespace category, empty for a zero namespace.
func (n Namespace) Root() string {
	if len(n) == 0 {
		return ""
	}
	return n[0]
}

// Path renders the namespace as a slash-joined path for storage backends.
func (n Namespace) Path() string {
	return strings.Join(n, "/")
}

// Upserts reports whether writes to this namespace replace the existing
// value for a key instead of appending a new record.
func (n Namespace) Upserts() bool {
	return n.Root() == NamespaceProfiles
}

// MemoryRecord is a persisted, namespaced fact extracted from a
// conversation. Records are owned by the memory store; callers read and
// write only through its interface.
type MemoryRecord struct {
	ID        RecordID
	Namespace Namespace
	Key       string
	Value     map[string]any
	Embedding firestore.Vector32

	// Score is the similarity to the search query, populated on search
	// results only.
	Score float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
