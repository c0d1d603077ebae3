package controller

import (
	"bridge4er_backend/internal/service"
	"bridge4er_backend/internal/util"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuestionBankController struct {
	ContentService *service.ContentService
}

func NewQuestionBankController(contentService *service.ContentService) *QuestionBankController {
	return &QuestionBankController{ContentService: contentService}
}

func (c *QuestionBankController) branch(ctx *gin.Context) string {
	branch := ctx.Query("branch")
	if branch == "" {
		branch = c.ContentService.DefaultBranch()
	}
	return branch
}

func (c *QuestionBankController) GetSubjects(ctx *gin.Context) {
	subjects, err := c.ContentService.ListSubjects(ctx.Request.Context(), c.branch(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

func (c *QuestionBankController) GetChapters(ctx *gin.Context) {
	subject := ctx.Param("subject")
	chapters, err := c.ContentService.ListChapters(ctx.Request.Context(), c.branch(ctx), subject)
	if err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.Error(ctx, http.StatusNotFound, "Subject not found")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, chapters)
}

func (c *QuestionBankController) GetQuestions(ctx *gin.Context) {
	subject := ctx.Param("subject")
	chapter := ctx.Param("chapter")
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "5"))

	result, err := c.ContentService.ListChapterQuestions(ctx.Request.Context(), c.branch(ctx), subject, chapter, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSubjectNotFound):
			util.Error(ctx, http.StatusNotFound, "Subject not found")
		case errors.Is(err, util.ErrChapterNotFound):
			util.Error(ctx, http.StatusNotFound, "Chapter not found")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}
