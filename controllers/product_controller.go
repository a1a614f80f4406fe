package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// AdjustStockRequest is the body of PATCH /products/:id/stock
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// ProductController exposes the product catalogue and stock adjustments
type ProductController struct {
	products *services.ProductService
	log      *zap.Logger
}

// NewProductController creates a product controller
func NewProductController(products *services.ProductService, log *zap.Logger) *ProductController {
	return &ProductController{products: products, log: log}
}

// CreateProduct handles POST /api/v1/products
func (ctl *ProductController) CreateProduct(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctl.products.Create(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, product)
}

// ListProducts handles GET /api/v1/products?category=&search=
func (ctl *ProductController) ListProducts(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	products, err := ctl.products.List(c.Request.Context(), services.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/:id
func (ctl *ProductController) GetProduct(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := ctl.products.Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// UpdateProduct handles PUT /api/v1/products/:id
func (ctl *ProductController) UpdateProduct(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch services.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctl.products.Update(c.Request.Context(), id, patch, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func (ctl *ProductController) DeleteProduct(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.products.Delete(c.Request.Context(), id, actor); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// AdjustStock handles PATCH /api/v1/products/:id/stock
func (ctl *ProductController) AdjustStock(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctl.products.AdjustStock(c.Request.Context(), id, req.Delta, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// UploadProductImage handles POST /api/v1/products/:id/image (multipart field "image")
func (ctl *ProductController) UploadProductImage(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field")
		return
	}

	product, err := ctl.products.UploadImage(c.Request.Context(), id, fileHeader, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}
