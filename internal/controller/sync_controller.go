package controller

import (
	"bridge4er_backend/internal/service"
	"bridge4er_backend/internal/util"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type SyncController struct {
	SyncService    *service.SyncService
	ContentService *service.ContentService
}

func NewSyncController(syncService *service.SyncService, contentService *service.ContentService) *SyncController {
	return &SyncController{SyncService: syncService, ContentService: contentService}
}

type syncRequest struct {
	Branch          string `json:"branch"`
	ReplaceExisting *bool  `json:"replaceExisting"`
	SyncObjective   *bool  `json:"syncObjective"`
	SyncExamSets    *bool  `json:"syncExamSets"`
}

type syncScopeError struct {
	Scope string `json:"scope"`
	Error string `json:"error"`
}

type syncResponse struct {
	Branch          string                        `json:"branch"`
	ReplaceExisting bool                          `json:"replaceExisting"`
	Objective       *service.ObjectiveSyncSummary `json:"objective,omitempty"`
	ExamSets        *service.ExamSetsSyncResult   `json:"examSets,omitempty"`
	Errors          []syncScopeError              `json:"errors"`
}

func boolOrDefault(value *bool, def bool) bool {
	if value == nil {
		return def
	}
	return *value
}

// SyncQuestionBank runs the requested reconciliation scopes immediately,
// bypassing the cooldown gate. Per-file failures are reported inside the
// summaries; only a request with no scope selected, or one where every
// selected scope failed outright, yields a non-200 status.
func (c *SyncController) SyncQuestionBank(ctx *gin.Context) {
	var req syncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, "Invalid request body")
		return
	}

	branch := strings.TrimSpace(req.Branch)
	if branch == "" {
		branch = c.ContentService.DefaultBranch()
	}
	replaceExisting := boolOrDefault(req.ReplaceExisting, true)
	syncObjective := boolOrDefault(req.SyncObjective, true)
	syncExamSets := boolOrDefault(req.SyncExamSets, true)

	if !syncObjective && !syncExamSets {
		util.BadRequest(ctx, "At least one of syncObjective or syncExamSets must be true")
		return
	}

	payload := syncResponse{
		Branch:          branch,
		ReplaceExisting: replaceExisting,
		Errors:          []syncScopeError{},
	}

	if syncObjective {
		summary, err := c.SyncService.SyncObjectiveBank(ctx.Request.Context(), branch, replaceExisting)
		if err != nil {
			payload.Errors = append(payload.Errors, syncScopeError{Scope: "objective", Error: err.Error()})
		} else {
			payload.Objective = summary
		}
	}

	if syncExamSets {
		result, err := c.SyncService.SyncExamSets(ctx.Request.Context(), branch, replaceExisting)
		if err != nil {
			payload.Errors = append(payload.Errors, syncScopeError{Scope: "exam_sets", Error: err.Error()})
		} else {
			payload.ExamSets = result
		}
	}

	if len(payload.Errors) > 0 && payload.Objective == nil && payload.ExamSets == nil {
		ctx.JSON(http.StatusBadRequest, util.Response{
			Code:    http.StatusBadRequest,
			Message: "sync failed",
			Data:    payload,
		})
		return
	}
	util.Success(ctx, payload)
}
