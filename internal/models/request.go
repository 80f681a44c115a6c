package models

type CreateProjectRequest struct {
	Title       string `json:"title" form:"title" example:"Brand refresh"`
	Description string `json:"description,omitempty" form:"description"`
	ClientName  string `json:"client_name,omitempty" form:"client_name"`
	ClientEmail string `json:"client_email,omitempty" form:"client_email"`
	// Deadline accepts YYYY-MM-DD or RFC 3339.
	Deadline string `json:"deadline,omitempty" form:"deadline" example:"2026-12-01"`
}

// UpdateProjectRequest is a partial update: absent fields keep their stored
// value, an empty string clears an optional field.
type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty" form:"title"`
	Description *string `json:"description,omitempty" form:"description"`
	ClientName  *string `json:"client_name,omitempty" form:"client_name"`
	ClientEmail *string `json:"client_email,omitempty" form:"client_email"`
	Deadline    *string `json:"deadline,omitempty" form:"deadline"`
}

type CreateOrderRequest struct {
	Title string `json:"title" form:"title" example:"Logo v1"`
	Notes string `json:"notes,omitempty" form:"notes"`
}

// UpdateOrderRequest is a partial update like UpdateProjectRequest.
type UpdateOrderRequest struct {
	Title *string `json:"title,omitempty" form:"title"`
	Notes *string `json:"notes,omitempty" form:"notes"`
}

type SetStatusRequest struct {
	Status string `json:"status" form:"status" example:"IN_PROGRESS"`
}

type CommentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
