package controller

import (
	"errors"
	"strconv"

	"quiz_portal_backend/internal/service"
	"quiz_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	Service *service.CertificateService
}

func NewCertificateController(svc *service.CertificateService) *CertificateController {
	return &CertificateController{Service: svc}
}

// @Summary Issue the certificate for a passed attempt
// @Tags certificates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "attempt id"
// @Success 201 {object} util.Response
// @Router /attempts/{id}/certificate [post]
func (c *CertificateController) Issue(ctx *gin.Context) {
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

	cert, err := c.Service.Issue(claims.UserID, uint(attemptID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotEligible):
			util.BadRequest(ctx, "attempt is not eligible for a certificate")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, cert)
}

// @Summary List own certificates
// @Tags certificates
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /my-certificates [get]
func (c *CertificateController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.Service.ListMine(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": certs, "total": len(certs)})
}

// @Summary Verify a certificate code
// @Description Public endpoint. Any miss returns the same invalid payload.
// @Tags certificates
// @Produce json
// @Param code query string true "certificate code"
// @Success 200 {object} util.Response
// @Router /certificates/verify [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	result := c.Service.Verify(ctx.Query("code"))
	util.Success(ctx, result)
}
