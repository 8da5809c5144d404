package handler

import (
	"net/http"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
)

// RateSkillRequest is the request body for rating an employee skill.
type RateSkillRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	SkillName string `json:"skill_name" validate:"required,max=100"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comments  string `json:"comments,omitempty"`
}

// RateSkill records a skill rating for an employee. Rating the same skill
// again overwrites the caller's previous rating.
// POST /skills
func (h *AnalyticsHandler) RateSkill(w http.ResponseWriter, r *http.Request) {
	var req RateSkillRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rating := &repository.SkillRating{
		UserID:    req.UserID,
		SkillName: req.SkillName,
		Rating:    req.Rating,
	}
	if req.Comments != "" {
		rating.Comments = &req.Comments
	}
	if user := actor.FromContext(r.Context()); user != nil {
		rating.RatedBy = &user.ID
	}

	if err := h.service.RateSkill(r.Context(), rating); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rating)
}

// ListSkillRatings returns skill ratings, optionally filtered
// GET /skills?user_id=&skill_name=
func (h *AnalyticsHandler) ListSkillRatings(w http.ResponseWriter, r *http.Request) {
	filter := repository.SkillRatingFilter{
		UserID:    r.URL.Query().Get("user_id"),
		SkillName: r.URL.Query().Get("skill_name"),
	}

	ratings, err := h.service.SkillRatings(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ratings)
}
