package handlers

import (
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
)

const deadlineLayout = "2006-01-02"

// view decides how much of a project a response exposes.
type view int

const (
	freelancerView view = iota
	clientView
)

func projectResponse(p *models.Project, v view) models.ProjectResponse {
	resp := models.ProjectResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description.String,
		ClientName:  p.ClientName.String,
		ClientEmail: p.ClientEmail.String,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Deadline.Valid {
		resp.Deadline = p.Deadline.Time.Format(deadlineLayout)
	}
	if v == freelancerView {
		resp.OwnerID = p.OwnerID.String()
		resp.AccessToken = p.AccessToken.String
	}
	return resp
}

func projectDetailResponse(t *services.Tracker, full *models.ProjectWithOrders, v view) models.ProjectDetailResponse {
	return models.ProjectDetailResponse{
		ProjectResponse: projectResponse(&full.Project, v),
		Orders:          orderResponses(t, full.Orders),
	}
}

func orderResponse(t *services.Tracker, o *models.Order) models.OrderResponse {
	resp := models.OrderResponse{
		ID:            o.ID.String(),
		ProjectID:     o.ProjectID.String(),
		Title:         o.Title,
		Notes:         o.Notes.String,
		Status:        string(o.Status),
		ClientComment: o.ClientComment.String,
		CanComment:    t.Lifecycle().CanAcceptComment(o),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.HasFile() {
		resp.FilePath = o.FilePath.String
		resp.FileURL = t.Blobs().URL(o.FilePath.String)
	}
	return resp
}

func orderResponses(t *services.Tracker, orders []models.Order) []models.OrderResponse {
	out := make([]models.OrderResponse, len(orders))
	for i := range orders {
		out[i] = orderResponse(t, &orders[i])
	}
	return out
}
