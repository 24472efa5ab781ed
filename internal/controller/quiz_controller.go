package controller

import (
	"context"

	"quiz_engine/internal/model"
	"quiz_engine/internal/service"
	"quiz_engine/internal/util"

	"github.com/gin-gonic/gin"
)

type quizService interface {
	GenerateQuiz(ctx context.Context, configID string) (*service.GeneratedQuiz, error)
	GradeSubmission(ctx context.Context, attempts []service.SubmittedAttempt) (*service.GradeOutcome, error)
	SubmitQuiz(ctx context.Context, userID, configID string, req service.SubmitRequest) (*model.QuizResult, error)
	PersistResult(ctx context.Context, result *model.QuizResult, operatorID string) (*model.QuizResult, error)
	CorrectSingleScore(ctx context.Context, resultID, questionID string, newScore int, operatorID string) (*model.QuizResult, error)
	GetResult(ctx context.Context, resultID, requesterID string, staff bool) (*model.QuizResult, error)
	ListPendingResults(ctx context.Context, page, limit int) ([]model.QuizResult, int64, error)
	ListAuditLogs(ctx context.Context, resultID string) ([]model.AuditLog, error)
}

type QuizController struct {
	Service quizService
}

func NewQuizController(svc quizService) *QuizController {
	return &QuizController{Service: svc}
}

type GradeRequest struct {
	Attempts []service.SubmittedAttempt `json:"attempts" binding:"required"`
}

type CorrectScoreRequest struct {
	Score *int `json:"score" binding:"required"`
}

// @Summary 生成试卷
// @Description 按配置的各部分抽题组卷，返回的题目不包含标准答案
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param configId path string true "测验配置ID"
// @Success 200 {object} util.Response{data=service.GeneratedQuiz}
// @Router /api/quizzes/{configId}/generate [get]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	quiz, err := c.Service.GenerateQuiz(ctx.Request.Context(), ctx.Param("configId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 评分（不保存）
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GradeRequest true "作答"
// @Success 200 {object} util.Response{data=service.GradeOutcome}
// @Router /api/quizzes/grade [post]
func (c *QuizController) GradeSubmission(ctx *gin.Context) {
	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.Service.GradeSubmission(ctx.Request.Context(), req.Attempts)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// @Summary 提交测验
// @Description 评分并保存成绩，含人工评分题时状态为 pending_grading
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param configId path string true "测验配置ID"
// @Param body body service.SubmitRequest true "作答"
// @Success 201 {object} util.Response{data=model.QuizResult}
// @Router /api/quizzes/{configId}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitQuiz(ctx.Request.Context(), user.UserID, ctx.Param("configId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 保存已评分的成绩
// @Tags 成绩
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.QuizResult true "成绩"
// @Success 201 {object} util.Response{data=model.QuizResult}
// @Router /api/quiz-results [post]
func (c *QuizController) PersistResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var result model.QuizResult
	if err := ctx.ShouldBindJSON(&result); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	// 主键由服务端生成
	result.ID = ""

	stored, err := c.Service.PersistResult(ctx.Request.Context(), &result, user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, stored)
}

// @Summary 查看成绩
// @Tags 成绩
// @Produce json
// @Security BearerAuth
// @Param id path string true "成绩ID"
// @Success 200 {object} util.Response{data=model.QuizResult}
// @Router /api/quiz-results/{id} [get]
func (c *QuizController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.GetResult(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.IsStaff())
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 待人工评分的成绩
// @Tags 成绩管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/quiz-results/pending [get]
func (c *QuizController) ListPendingResults(ctx *gin.Context) {
	page, limit := util.ParsePagination(ctx)

	results, total, err := c.Service.ListPendingResults(ctx.Request.Context(), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  results,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 修改单题得分
// @Tags 成绩管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "成绩ID"
// @Param questionId path string true "题目ID"
// @Param body body CorrectScoreRequest true "新分数"
// @Success 200 {object} util.Response{data=model.QuizResult}
// @Router /api/admin/quiz-results/{id}/attempts/{questionId}/score [patch]
func (c *QuizController) CorrectScore(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CorrectScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.CorrectSingleScore(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questionId"), *req.Score, user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 成绩审计记录
// @Tags 成绩管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "成绩ID"
// @Success 200 {object} util.Response{data=[]model.AuditLog}
// @Router /api/admin/quiz-results/{id}/audit-logs [get]
func (c *QuizController) ListAuditLogs(ctx *gin.Context) {
	logs, err := c.Service.ListAuditLogs(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}
