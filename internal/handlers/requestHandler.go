package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onboardrag/core/internal/adapter"
	"github.com/onboardrag/core/internal/adapter/utils"
	"github.com/onboardrag/core/internal/api"
	"github.com/onboardrag/core/internal/config"
	"github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/pkg/logger_i"
)

var logRH *logger_i.Logger

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of an ingestion/reprocess job by its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse "The current status of the job"
// @Failure      404  {object}  api.JobResponse "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler handles the uploading of PDF or DOCX documents for RAG ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        title    formData  string  true  "The display title of the document"
// @Param        tagId    formData  string  false "Optional tag id for filtering"
// @Param        document formData  file    true  "The PDF or DOCX file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id and status URL"
// @Failure      400  {object}  api.JobResponse "Bad Request - missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - storage or write error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory :", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "title is required")
		return
	}
	tagId := r.FormValue("tagId")

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, title, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	tempFilePath := filepath.Join(targetDir, filename)
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, title, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, title, "Write error")
		return
	}

	newJob := newJobData{
		id:       utils.GetNewUUID(),
		traceId:  r.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:  jobModel.JobTypeIngest,
		title:    title,
		tagId:    tagId,
		filename: fileMetadata.Filename,
		filePath: tempFilePath,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// PostReprocessHandler re-runs the ingestion pipeline for one already
// stored document.
// @Summary      Reprocess a document
// @Description  Re-chunks and re-embeds a previously ingested document, queued as a background job.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse
// @Router       /documents/{id}/reprocess [post]
func PostReprocessHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	documentId := utils.GetChiURLParam(r, "id")
	if documentId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document id is required")
		return
	}
	newJob := newJobData{
		id:         utils.GetNewUUID(),
		traceId:    r.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:    jobModel.JobTypeReprocess,
		documentId: documentId,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// PostReprocessAllHandler re-runs the ingestion pipeline for every stored
// document, as a single background job.
// @Summary      Reprocess all documents
// @Description  Re-chunks and re-embeds every ingested document, queued as a single background job.
// @Tags         Ingestion
// @Produce      json
// @Success      202  {object}  api.InitJobResponse
// @Router       /documents/reprocess-all [post]
func PostReprocessAllHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	newJob := newJobData{
		id:      utils.GetNewUUID(),
		traceId: r.Context().Value(config.TRACE_ID_KEY).(string),
		jobType: jobModel.JobTypeReprocessAll,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// DeleteDocumentHandler removes a document and all of its chunks
// synchronously; deletion does not justify a background job.
// @Summary      Delete a document
// @Description  Deletes a document and cascades to its chunks.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      204
// @Failure      500  {object}  api.JobResponse
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	documentId := utils.GetChiURLParam(r, "id")
	if documentId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document id is required")
		return
	}
	if err := RagService().DeleteDocument(r.Context(), documentId); err != nil {
		logRH.Error("delete document failed", "documentId", documentId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, documentId, "could not delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocumentsHandler returns the admin listing of every stored document
// joined to its chunk count.
// @Summary      List documents
// @Description  Returns every ingested document with its chunk count and upload time.
// @Tags         Ingestion
// @Produce      json
// @Success      200  {array}  api.DocumentListEntry
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	rows, err := RagService().ListDocuments(r.Context())
	if err != nil {
		logRH.Error("list documents failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "could not list documents")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(rows))
}

// QueryHandler answers a natural-language question synchronously against
// the ingested corpus.
// @Summary      Ask a question
// @Description  Retrieves relevant chunks and synthesizes a cited, confidence-scored answer.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest  true  "Question and optional user id"
// @Success      200      {object}  api.QueryResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /query [post]
func QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.QueryRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Question == "" {
		logRH.Warn("Bad query request: ", "error:", err, "request data:", requestData)
		WriteErrorResponse(w, http.StatusBadRequest, "", "question is required")
		return
	}

	answer, err := RagService().Answer(r.Context(), requestData.Question, requestData.UserID)
	if err != nil {
		logRH.Error("answer failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "could not answer question")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(answer))
}

// StatsHandler returns the knowledge-base readiness and corpus analytics.
// @Summary      Knowledge base stats
// @Description  Returns aggregate corpus statistics used to judge retrieval readiness.
// @Tags         Query
// @Produce      json
// @Success      200  {object}  api.StatsResponse
// @Router       /stats [get]
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	summary, err := RagService().Stats(r.Context())
	if err != nil {
		logRH.Error("stats failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "could not compute stats")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToStatsResponse(summary))
}
