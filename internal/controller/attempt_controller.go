package controller

import (
	"errors"
	"strconv"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/service"
	"quiz_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Attempts   *service.AttemptService
	Violations *service.ViolationService
}

func NewAttemptController(attempts *service.AttemptService, violations *service.ViolationService) *AttemptController {
	return &AttemptController{Attempts: attempts, Violations: violations}
}

// @Summary Start an attempt on a published test
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "test id"
// @Success 201 {object} util.Response
// @Router /tests/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	attempt, err := c.Attempts.Start(claims.UserID, uint(testID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrTestNotPublished):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrDuplicateAttempt):
			util.Conflict(ctx, "an attempt on this test is already in progress")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, attempt)
}

type AnswerReq struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

// @Summary Record an answer on an in-progress attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Param body body AnswerReq true "answer"
// @Success 200 {object} util.Response
// @Router /attempts/{id}/answers [post]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	var req AnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Attempts.RecordAnswer(claims.UserID, uint(attemptID), req.QuestionID, req.Answer); err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidState):
			util.Conflict(ctx, "attempt is no longer in progress")
		default:
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, gin.H{"saved": true})
}

// @Summary Submit an attempt for scoring
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Success 200 {object} util.Response
// @Router /attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	attempt, err := c.Attempts.Submit(claims.UserID, uint(attemptID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidState):
			util.Conflict(ctx, "attempt was terminated and cannot be submitted")
		case errors.Is(err, util.ErrScoring):
			util.LogInternalError(ctx, err)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, attempt)
}

// @Summary Report liveness for an in-progress attempt
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Success 200 {object} util.Response
// @Router /attempts/{id}/heartbeat [post]
func (c *AttemptController) Heartbeat(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	if err := c.Attempts.Heartbeat(claims.UserID, uint(attemptID)); err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidState):
			util.Conflict(ctx, "attempt is no longer in progress")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"alive": true})
}

type ViolationReq struct {
	Kind   string `json:"kind" binding:"required"`
	Detail string `json:"detail"`
}

// @Summary Report a proctoring violation event
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Param body body ViolationReq true "violation event"
// @Success 202 {object} util.Response
// @Router /attempts/{id}/violations [post]
func (c *AttemptController) ReportViolation(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	var req ViolationReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// Record never fails the exam flow; the client always gets an ack.
	if err := c.Violations.Record(claims.UserID, uint(attemptID), model.ViolationKind(req.Kind), req.Detail); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recorded": true})
}

// @Summary Get own attempt detail with graded answers
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Success 200 {object} util.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) GetDetail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	// Teachers and admins may inspect any attempt.
	studentID := claims.UserID
	if claims.Role == model.Teacher || claims.Role == model.Admin {
		studentID = 0
	}

	detail, err := c.Attempts.GetDetail(studentID, uint(attemptID))
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary List own attempts
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /my-attempts [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	attempts, total, err := c.Attempts.ListMine(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": attempts, "total": total})
}

// @Summary List attempts on a test for proctoring review
// @Tags teacher
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "test id"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Param status query string false "filter by attempt status"
// @Success 200 {object} util.Response
// @Router /teacher/tests/{id}/attempts [get]
func (c *AttemptController) ListForReview(ctx *gin.Context) {
	testID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	status := ctx.Query("status")

	rows, total, err := c.Attempts.ListForReview(uint(testID), page, limit, status)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": rows, "total": total})
}

// @Summary List violation events for an attempt
// @Tags teacher
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Success 200 {object} util.Response
// @Router /teacher/attempts/{id}/violations [get]
func (c *AttemptController) ListViolations(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	events, err := c.Violations.ListByAttempt(uint(attemptID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": events, "total": len(events)})
}

type TerminateReq struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary Terminate an in-progress attempt
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Param body body TerminateReq true "termination reason"
// @Success 200 {object} util.Response
// @Router /teacher/attempts/{id}/terminate [post]
func (c *AttemptController) Terminate(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	var req TerminateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Attempts.Terminate(uint(attemptID), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidState):
			util.Conflict(ctx, "attempt was already submitted")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, attempt)
}
