package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"product-ledger/internal/repository"
	"product-ledger/internal/service"
	"product-ledger/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth     service.AuthService
	products service.ProductService
	reports  service.ReportService
	secret   []byte
	logger   *logrus.Logger
}

func NewHandler(auth service.AuthService, products service.ProductService, reports service.ReportService, jwtSecret []byte, logger *logrus.Logger) *Handler {
	return &Handler{
		auth:     auth,
		products: products,
		reports:  reports,
		secret:   jwtSecret,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(h.logger))

	api := router.Group("/api/auth")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)

		protected := api.Group("", h.requireAuth())
		protected.GET("/generate-pdf/:username", h.generatePDF)
		protected.GET("/reports/:username", h.listReports)
		protected.POST("/products/add", h.addProduct)
		protected.GET("/products/:username", h.listProducts)
		protected.DELETE("/products/:productId", h.deleteProduct)
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// addProductRequest uses pointer fields for the numeric columns so a literal
// zero (a valid GST, for one) still satisfies the required binding.
type addProductRequest struct {
	Username     string   `json:"username" binding:"required"`
	ProductName  string   `json:"productName" binding:"required"`
	ProductQty   *float64 `json:"productQty" binding:"required"`
	ProductRate  *float64 `json:"productRate" binding:"required"`
	ProductTotal *float64 `json:"productTotal" binding:"required"`
	ProductGST   *float64 `json:"productGST" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		// one body for both failure kinds, account existence is not disclosed
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
		default:
			h.internalError(c, err)
		}
		return
	}

	// email echoed from the request, not re-read from storage
	c.JSON(http.StatusOK, gin.H{"token": token, "email": req.Email})
}

func (h *Handler) generatePDF(c *gin.Context) {
	username := c.Param("username")

	data, err := h.reports.Generate(c.Request.Context(), callerID(c), username)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=Products.pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}

type ReportObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func reportObjectToResponse(obj storage.ObjectInfo) ReportObjectResponse {
	resp := ReportObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func (h *Handler) listReports(c *gin.Context) {
	username := c.Param("username")

	objects, err := h.reports.ListArchived(c.Request.Context(), callerID(c), username)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := make([]ReportObjectResponse, len(objects))
	for i := range objects {
		resp[i] = reportObjectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) addProduct(c *gin.Context) {
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := h.products.Add(c.Request.Context(), callerID(c), req.Username, service.ProductInput{
		Name:  req.ProductName,
		Qty:   *req.ProductQty,
		Rate:  *req.ProductRate,
		Total: *req.ProductTotal,
		GST:   *req.ProductGST,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) listProducts(c *gin.Context) {
	username := c.Param("username")

	products, err := h.products.List(c.Request.Context(), callerID(c), username)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	productID := c.Param("productId")
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username query parameter is required"})
		return
	}

	if err := h.products.Delete(c.Request.Context(), callerID(c), username, productID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Product deleted"})
}

// writeServiceError maps service sentinels onto the product/report surface.
func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, repository.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
