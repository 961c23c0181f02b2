package dto

type BuildRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type DebugRequest struct {
	Code    string `json:"code" validate:"required"`
	Problem string `json:"problem" validate:"required"`
}

type ImageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type TextResultResponse struct {
	Text string `json:"text"`
}

type ImageResultResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

type ConfigStatusResponse struct {
	IsConfigured  bool    `json:"is_configured"`
	Error         *string `json:"error"`
	Provider      string  `json:"provider"`
	ImageProvider string  `json:"image_provider"`
	ImageError    *string `json:"image_error"`
}

type ViewDTO struct {
	Id    string `json:"id"`
	Label string `json:"label"`
}
