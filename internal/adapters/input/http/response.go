package http

import (
	"net/http"
	"time"

	"qzone-agent/internal/domain"
)

var (
	// Success response
	Success = Status{Code: http.StatusOK, Message: []string{"Success"}}
	// BadRequest response
	BadRequest = Status{Code: http.StatusBadRequest, Message: []string{"Sorry, Not responding because of incorrect syntax"}}
	// Unauthorized response
	Unauthorized = Status{Code: http.StatusUnauthorized, Message: []string{"Sorry, We are not able to process your request. Please try again"}}
	// Forbidden response
	Forbidden = Status{Code: http.StatusForbidden, Message: []string{"Sorry, Permission denied"}}
	// NotFound response
	NotFound = Status{Code: http.StatusNotFound, Message: []string{"Sorry, Nothing matched your request"}}
	// InternalServerError response
	InternalServerError = Status{Code: http.StatusInternalServerError, Message: []string{"Internal Server Error"}}
)

// ResponseBody struct - Generic HTTP response wrapper
type ResponseBody struct {
	Status Status      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Status struct
type Status struct {
	Code    int      `json:"code,omitempty"`
	Message []string `json:"message,omitempty"`
}

type (
	// PostResponse struct - HTTP response DTO for a published post
	PostResponse struct {
		TID string `json:"tid"`
	}

	// DiaryResponse struct - HTTP response DTO for a single diary entry
	DiaryResponse struct {
		Date        string    `json:"date"`
		Seq         int       `json:"seq"`
		Style       string    `json:"style"`
		Content     string    `json:"content"`
		WordCount   int       `json:"word_count"`
		SourceCount int       `json:"source_count"`
		GeneratedAt time.Time `json:"generated_at"`
		Published   bool      `json:"published"`
	}

	// DiaryListResponse struct - HTTP response DTO for the diary listing
	DiaryListResponse struct {
		Listing string `json:"listing"`
	}
)

// toDiaryResponse func - Converts a domain entry to the HTTP DTO
func toDiaryResponse(entry *domain.DiaryEntry) DiaryResponse {
	return DiaryResponse{
		Date:        entry.Date,
		Seq:         entry.Seq,
		Style:       string(entry.Style),
		Content:     entry.Content,
		WordCount:   entry.WordCount,
		SourceCount: entry.SourceCount,
		GeneratedAt: entry.GeneratedAt,
		Published:   entry.Published,
	}
}
