package share

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/middleware"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/service/share"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/httputil"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/validator"
)

type Handler struct {
	service *share.Service
}

func NewHandler(service *share.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the link issuing routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	shares := r.Group("/share")
	{
		shares.POST("/generate-link", h.GenerateLink)
		shares.POST("/send-email", h.SendEmail)
	}
}

// RegisterPublicRoutes mounts link redemption, which needs no session.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/share/:token", h.Redeem)
}

func (h *Handler) GenerateLink(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	var req model.ShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Type and ID required")
		return
	}

	link, err := h.service.IssueLink(c.Request.Context(), userID, req.Type, req.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, link)
}

func (h *Handler) SendEmail(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	var req model.ShareEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fe, ok := validator.FirstFieldError(err); ok && !validator.IsMissing(err) && strings.EqualFold(fe.Field, "email") {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid email")
			return
		}
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Email, type, and ID required")
		return
	}

	link, err := h.service.SendLink(c.Request.Context(), userID, req.Email, req.Type, req.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{
		Status:  httputil.StatusSuccess,
		Message: "Email sent",
		Data:    link,
	})
}

// Redeem resolves a share token. Holding the token is the authorization.
func (h *Handler) Redeem(c *gin.Context) {
	doc, err := h.service.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doc)
}
