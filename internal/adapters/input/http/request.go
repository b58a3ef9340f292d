package http

type (
	// SendRequest struct - HTTP request DTO for topic posts
	SendRequest struct {
		CallerID string `json:"caller_id" validate:"required" form:"caller_id" query:"caller_id"`
		Topic    string `json:"topic" validate:"omitempty,max=200" form:"topic" query:"topic"`
	}

	// CustomSendRequest struct - HTTP request DTO for custom posts
	CustomSendRequest struct {
		CallerID string `json:"caller_id" validate:"required" form:"caller_id" query:"caller_id"`
	}

	// DiaryGenerateRequest struct - HTTP request DTO for diary generation
	DiaryGenerateRequest struct {
		CallerID string `json:"caller_id" validate:"required" form:"caller_id" query:"caller_id"`
		Date     string `json:"date" validate:"omitempty,max=20" form:"date" query:"date"`
	}
)
