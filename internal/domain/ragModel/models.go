// Package ragModel holds the entities of the RAG core's data model:
// Documents, Chunks, Tags and the transient Retrieval Source / Answer
// records produced by a query. Metadata on Document and Chunk follows a
// tagged-product shape (fixed fields plus an Extra extension map) rather
// than a free-form blob; it still serializes to a single JSON column at
// the Store boundary.
package ragModel

import "time"

type DocumentType string

const (
	DocTypeOnboarding DocumentType = "onboarding"
	DocTypePolicy     DocumentType = "policy"
	DocTypeTraining   DocumentType = "training"
	DocTypeHandbook   DocumentType = "handbook"
	DocTypeGuide      DocumentType = "guide"
	DocTypeProcedure  DocumentType = "procedure"
	DocTypeGeneral    DocumentType = "general"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageUnknown Language = "unknown"
)

// Section is a heading found during extraction, used only to build
// DocumentMetadata.SectionCount and, optionally, surfaced to callers who
// want a table of contents.
type Section struct {
	Title string `json:"title"`
	Level int    `json:"level"`
}

// DocumentMetadata is the fixed-field-plus-extension metadata blob stored
// alongside a Document.
type DocumentMetadata struct {
	DocumentType  DocumentType      `json:"documentType"`
	Language      Language          `json:"language"`
	ExtractedTags []string          `json:"extractedTags,omitempty"`
	SectionCount  int               `json:"sectionCount"`
	Subject       string            `json:"subject,omitempty"`
	Keywords      string            `json:"keywords,omitempty"`
	Creator       string            `json:"creator,omitempty"`
	Producer      string            `json:"producer,omitempty"`
	CreationDate  time.Time         `json:"creationDate,omitempty"`
	ModDate       time.Time         `json:"modDate,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Tag is managed entirely by the admin collaborator; the core only reads
// its id/name when denormalizing a Document's tag for display.
type Tag struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Document is the persisted row for one ingested PDF.
type Document struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Author     string           `json:"author,omitempty"`
	TagID      string           `json:"tagId,omitempty"`
	Text       string           `json:"text"`
	PageCount  int              `json:"pageCount"`
	WordCount  int              `json:"wordCount"`
	UploadedAt time.Time        `json:"uploadedAt"`
	Metadata   DocumentMetadata `json:"metadata"`
}

// ChunkMetadata is denormalized onto every Chunk so the Retriever can
// build a RetrievalSource from a single chunk row without joining back
// to its Document.
type ChunkMetadata struct {
	StartChar      int          `json:"startChar"`
	EndChar        int          `json:"endChar"`
	SectionTitle   string       `json:"sectionTitle,omitempty"`
	DocumentTitle  string       `json:"documentTitle"`
	DocumentType   DocumentType `json:"documentType"`
	DocumentAuthor string       `json:"documentAuthor,omitempty"`
}

// Chunk is one token-budgeted slice of a Document's text. Embedding is
// nil until the Embedder succeeds for this chunk.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"documentId"`
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	TokenCount int           `json:"tokenCount"`
	Embedding  []float32     `json:"embedding,omitempty"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// RetrievalSource is a transient record describing one chunk surfaced for
// a query. It is never persisted; ownership belongs to the query caller.
type RetrievalSource struct {
	ChunkID        string        `json:"chunkId"`
	DocumentID     string        `json:"documentId"`
	DocumentTitle  string        `json:"documentTitle"`
	ChunkIndex     int           `json:"chunkIndex"`
	ChunkText      string        `json:"chunkText"`
	RelevanceScore float64       `json:"relevanceScore"`
	Metadata       ChunkMetadata `json:"metadata"`
}

// Excerpt returns the first 200 characters of the chunk text, suffixed
// with an ellipsis, for compact display in a query response.
func (r RetrievalSource) Excerpt() string {
	const maxLen = 200
	text := []rune(r.ChunkText)
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return string(text) + "…"
}

// Answer is the transient result of the query path. Cached marks an
// answer replayed from the semantic answer cache; such answers carry
// no sources.
type Answer struct {
	Text                string            `json:"answer"`
	Sources             []RetrievalSource `json:"sources"`
	Confidence          float64           `json:"confidence"`
	Cached              bool              `json:"cached"`
	ResponseTimeSeconds float64           `json:"responseTimeSeconds"`
}
