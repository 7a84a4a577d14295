package adapter

import (
	"fmt"
	"time"

	"github.com/onboardrag/core/internal/api"
	"github.com/onboardrag/core/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:       string(job.Status),
		IngestResult: toIngestResult(job.Payload),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func toIngestResult(payload jobModel.JobPayload) *api.IngestResult {
	if payload.Document == nil && payload.AllStats == nil {
		return nil
	}

	out := &api.IngestResult{Warning: payload.Warning}
	if payload.Document != nil {
		doc := payload.Document
		out.Document = &api.DocumentResponse{
			Id:         doc.ID,
			Title:      doc.Title,
			Author:     doc.Author,
			TagId:      doc.TagID,
			PageCount:  doc.PageCount,
			WordCount:  doc.WordCount,
			UploadedAt: doc.UploadedAt,
		}
		out.Stats = &api.IngestStats{
			Seconds: payload.Stats.Seconds,
			Pages:   payload.Stats.Pages,
			Words:   payload.Stats.Words,
		}
	}
	if payload.AllStats != nil {
		out.ReprocessAll = &api.ReprocessAllResult{
			Processed: payload.AllStats.Processed,
			Errors:    payload.AllStats.Errors,
		}
	}
	return out
}

func BadRequest(id string, message string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: message,
			Retry:   false,
		},
	}
}
