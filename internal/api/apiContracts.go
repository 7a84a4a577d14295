package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// IngestResult is the ingestion-shaped payload a completed job carries:
// the persisted document's metadata plus the processing statistics named
// in the ingestion interface contract.
type IngestResult struct {
	Document     *DocumentResponse   `json:"document,omitempty"`
	Stats        *IngestStats        `json:"stats,omitempty"`
	Warning      string              `json:"warning,omitempty"`
	ReprocessAll *ReprocessAllResult `json:"reprocessAll,omitempty"`
}

type IngestStats struct {
	Seconds float64 `json:"seconds"`
	Pages   int     `json:"pages"`
	Words   int     `json:"words"`
}

type ReprocessAllResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

type DocumentResponse struct {
	Id         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	TagId      string    `json:"tagId,omitempty"`
	PageCount  int       `json:"pageCount"`
	WordCount  int       `json:"wordCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Result struct {
	Status       string        `json:"status"`
	IngestResult *IngestResult `json:"ingestResult,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IngestDocumentRequest struct {
	Title string `json:"title" validate:"required"`
	TagID string `json:"tagId,omitempty"`
}

type QueryRequest struct {
	Question string `json:"question" validate:"required"`
	UserID   string `json:"userId,omitempty"`
}

type QueryResponse struct {
	Answer              string           `json:"answer"`
	Confidence          float64          `json:"confidence"`
	Cached              bool             `json:"cached"`
	ResponseTimeSeconds float64          `json:"responseTimeSeconds"`
	Sources             []SourceResponse `json:"sources"`
	Metadata            QueryMetadata    `json:"metadata"`
}

type SourceResponse struct {
	ChunkId        string         `json:"chunkId"`
	DocumentId     string         `json:"documentId"`
	DocumentTitle  string         `json:"documentTitle"`
	ChunkIndex     int            `json:"chunkIndex"`
	RelevanceScore float64        `json:"relevanceScore"`
	Excerpt        string         `json:"excerpt"`
	Metadata       SourceMetadata `json:"metadata"`
}

type SourceMetadata struct {
	Author       string `json:"author,omitempty"`
	DocumentType string `json:"documentType"`
}

type QueryMetadata struct {
	SourceCount       int     `json:"sourceCount"`
	AvgRelevanceScore float64 `json:"avgRelevanceScore"`
	TopRelevanceScore float64 `json:"topRelevanceScore"`
}

type StatsResponse struct {
	TotalDocuments          int            `json:"totalDocuments"`
	TotalChunks             int            `json:"totalChunks"`
	TotalWords              int            `json:"totalWords"`
	DocumentsWithEmbeddings int            `json:"documentsWithEmbeddings"`
	AverageChunksPerDoc     float64        `json:"averageChunksPerDoc"`
	DocumentTypeCounts      map[string]int `json:"documentTypeCounts"`
	RecentUploads           []string       `json:"recentUploads"`
	IsReady                 bool           `json:"isReady"`
}

type DocumentListEntry struct {
	Id         string    `json:"id"`
	Title      string    `json:"title"`
	TagId      string    `json:"tagId,omitempty"`
	ChunkCount int       `json:"chunkCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}
