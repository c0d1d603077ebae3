package controller

import (
	"bridge4er_backend/internal/model"
	"bridge4er_backend/internal/service"
	"bridge4er_backend/internal/util"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ExamSetController struct {
	ContentService *service.ContentService
}

func NewExamSetController(contentService *service.ContentService) *ExamSetController {
	return &ExamSetController{ContentService: contentService}
}

func (c *ExamSetController) GetExamSets(ctx *gin.Context) {
	branch := ctx.Query("branch")
	if branch == "" {
		branch = c.ContentService.DefaultBranch()
	}
	examType := model.ExamType(ctx.Query("type"))

	sets, err := c.ContentService.ListExamSets(ctx.Request.Context(), branch, examType)
	if err != nil {
		if errors.Is(err, util.ErrInvalidExamType) {
			util.BadRequest(ctx, "type must be mcq or subjective")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, sets)
}

func (c *ExamSetController) GetExamSet(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "Invalid exam set id")
		return
	}

	set, err := c.ContentService.GetExamSet(ctx.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, util.ErrExamSetNotFound) {
			util.Error(ctx, http.StatusNotFound, "Exam set not found")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, set)
}
