package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/onboardrag/core/internal/adapter"
)

// AskKnowledgeBaseInput is the input schema for the ask_knowledge_base tool.
type AskKnowledgeBaseInput struct {
	Question string `json:"question" jsonschema:"the question to ask against the ingested onboarding documents"`
}

// AskKnowledgeBaseOutput mirrors the HTTP query response shape so an
// MCP client and an HTTP client see the same contract.
type AskKnowledgeBaseOutput struct {
	Answer              string           `json:"answer"`
	Confidence          float64          `json:"confidence"`
	ResponseTimeSeconds float64          `json:"responseTimeSeconds"`
	Sources             []SourceOutput   `json:"sources"`
	Metadata            QueryMetadataOut `json:"metadata"`
}

type SourceOutput struct {
	ChunkId        string  `json:"chunkId"`
	DocumentId     string  `json:"documentId"`
	DocumentTitle  string  `json:"documentTitle"`
	ChunkIndex     int     `json:"chunkIndex"`
	RelevanceScore float64 `json:"relevanceScore"`
	Excerpt        string  `json:"excerpt"`
}

type QueryMetadataOut struct {
	SourceCount       int     `json:"sourceCount"`
	AvgRelevanceScore float64 `json:"avgRelevanceScore"`
	TopRelevanceScore float64 `json:"topRelevanceScore"`
}

// KnowledgeBaseStatsOutput mirrors the HTTP stats response shape.
type KnowledgeBaseStatsOutput struct {
	TotalDocuments          int            `json:"totalDocuments"`
	TotalChunks             int            `json:"totalChunks"`
	TotalWords              int            `json:"totalWords"`
	DocumentsWithEmbeddings int            `json:"documentsWithEmbeddings"`
	AverageChunksPerDoc     float64        `json:"averageChunksPerDoc"`
	DocumentTypeCounts      map[string]int `json:"documentTypeCounts"`
	IsReady                 bool           `json:"isReady"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_knowledge_base",
		Description: "Ask a question about the ingested onboarding documents and get a cited, confidence-scored answer",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_base_stats",
		Description: "Report corpus size, embedding coverage and retrieval readiness",
	}, s.handleStats)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskKnowledgeBaseInput,
) (*mcp.CallToolResult, AskKnowledgeBaseOutput, error) {
	answer, err := s.ragService.Answer(ctx, input.Question, "")
	if err != nil {
		return nil, AskKnowledgeBaseOutput{}, err
	}

	resp := adapter.ToQueryResponse(answer)
	out := AskKnowledgeBaseOutput{
		Answer:              resp.Answer,
		Confidence:          resp.Confidence,
		ResponseTimeSeconds: resp.ResponseTimeSeconds,
		Metadata: QueryMetadataOut{
			SourceCount:       resp.Metadata.SourceCount,
			AvgRelevanceScore: resp.Metadata.AvgRelevanceScore,
			TopRelevanceScore: resp.Metadata.TopRelevanceScore,
		},
	}
	out.Sources = make([]SourceOutput, len(resp.Sources))
	for i, src := range resp.Sources {
		out.Sources[i] = SourceOutput{
			ChunkId:        src.ChunkId,
			DocumentId:     src.DocumentId,
			DocumentTitle:  src.DocumentTitle,
			ChunkIndex:     src.ChunkIndex,
			RelevanceScore: src.RelevanceScore,
			Excerpt:        src.Excerpt,
		}
	}

	return nil, out, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, KnowledgeBaseStatsOutput, error) {
	summary, err := s.ragService.Stats(ctx)
	if err != nil {
		return nil, KnowledgeBaseStatsOutput{}, err
	}

	resp := adapter.ToStatsResponse(summary)
	return nil, KnowledgeBaseStatsOutput{
		TotalDocuments:          resp.TotalDocuments,
		TotalChunks:             resp.TotalChunks,
		TotalWords:              resp.TotalWords,
		DocumentsWithEmbeddings: resp.DocumentsWithEmbeddings,
		AverageChunksPerDoc:     resp.AverageChunksPerDoc,
		DocumentTypeCounts:      resp.DocumentTypeCounts,
		IsReady:                 resp.IsReady,
	}, nil
}
