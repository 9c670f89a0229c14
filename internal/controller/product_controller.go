package controller

import (
	"net/http"
	"strconv"

	"github.com/bilawal506/online-mart/internal/dto"
	"github.com/bilawal506/online-mart/internal/service"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/bilawal506/online-mart/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type ProductController struct {
	service service.ProductService
}

// CreateProductController registers the product routes. Every route except the
// greeting goes through auth.
func CreateProductController(e *echo.Echo, service service.ProductService, auth echo.MiddlewareFunc) {
	pc := ProductController{
		service: service,
	}

	e.GET("/", pc.Greeting)
	e.POST("/add-product", pc.AddProduct, auth)
	e.GET("/products", pc.GetProducts, auth)
	e.GET("/products/:id", pc.GetProductByID, auth)
	e.GET("/products/category/:category", pc.GetProductsByCategory, auth)
	e.PATCH("/products/:id", pc.UpdateProduct, auth)
	e.DELETE("/products/:id", pc.DeleteProduct, auth)
}

func (pc *ProductController) Greeting(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"Message": "I am the products microservice"})
}

func (pc *ProductController) AddProduct(c echo.Context) error {
	payload := dto.ProductRequest{}
	if err := c.Bind(&payload); err != nil {
		log.Ctx(c.Request().Context()).Warn().Err(err).Str("component", "AddProduct").Msg("")
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	if err := pc.service.AddProduct(c.Request().Context(), payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "Product accepted for processing", nil)
}

func (pc *ProductController) GetProducts(c echo.Context) error {
	filter := pkgdto.Filter{}
	if err := c.Bind(&filter); err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	resp, err := pc.service.GetProducts(c.Request().Context(), filter)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (pc *ProductController) GetProductByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	resp, err := pc.service.GetProductByID(c.Request().Context(), id)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (pc *ProductController) GetProductsByCategory(c echo.Context) error {
	resp, err := pc.service.GetProductsByCategory(c.Request().Context(), c.Param("category"))
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (pc *ProductController) UpdateProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	payload := dto.ProductUpdateRequest{}
	if err := c.Bind(&payload); err != nil {
		log.Ctx(c.Request().Context()).Warn().Err(err).Str("component", "UpdateProduct").Msg("")
		return response.WriteErrorResponse(c, errs.ErrClient)
	}
	if err := c.Validate(payload); err != nil {
		return response.WriteErrorResponse(c, err)
	}
	payload.ID = id

	resp, err := pc.service.UpdateProduct(c.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}

func (pc *ProductController) DeleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(c, errs.ErrClient)
	}

	resp, err := pc.service.DeleteProduct(c.Request().Context(), id)
	if err != nil {
		return response.WriteErrorResponse(c, err)
	}

	return response.WriteSuccessResponse(c, "", resp)
}
