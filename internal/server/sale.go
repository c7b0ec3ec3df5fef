package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	saledomain "github.com/rubicondrive/dealerdesk/internal/sale/domain"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
)

type createSaleRequest struct {
	VehicleID     string   `json:"vehicle_id"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	SalePrice     float64  `json:"sale_price"`
	Currency      string   `json:"currency"`
	CostOfGoods   *float64 `json:"cost_of_goods"`
	Discount      float64  `json:"discount"`
	TaxRate       float64  `json:"tax_rate"`
	SalespersonID string   `json:"salesperson_id"`
	Notes         string   `json:"notes"`
}

func (s *Server) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Create(c.Request.Context(), saledomain.CreateSaleRequest{
		VehicleID:     strings.TrimSpace(req.VehicleID),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		SalePrice:     req.SalePrice,
		Currency:      strings.TrimSpace(req.Currency),
		CostOfGoods:   req.CostOfGoods,
		Discount:      req.Discount,
		TaxRate:       req.TaxRate,
		SalespersonID: strings.TrimSpace(req.SalespersonID),
		Notes:         req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSaleRequest struct {
	CustomerName  *string  `json:"customer_name"`
	CustomerEmail *string  `json:"customer_email"`
	SalePrice     *float64 `json:"sale_price"`
	Currency      *string  `json:"currency"`
	CostOfGoods   *float64 `json:"cost_of_goods"`
	Discount      *float64 `json:"discount"`
	TaxRate       *float64 `json:"tax_rate"`
	SalespersonID *string  `json:"salesperson_id"`
	Notes         *string  `json:"notes"`
}

func (s *Server) UpdateSale(c *gin.Context) {
	var req updateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Update(c.Request.Context(), saledomain.UpdateSaleRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		SalePrice:     req.SalePrice,
		Currency:      req.Currency,
		CostOfGoods:   req.CostOfGoods,
		Discount:      req.Discount,
		TaxRate:       req.TaxRate,
		SalespersonID: req.SalespersonID,
		Notes:         req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), saledomain.GetSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		pagination.Pagination
		VehicleID   string `form:"vehicle_id"`
		Status      string `form:"status"`
		VehicleSync string `form:"vehicle_sync"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListSalesRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		VehicleID:   strings.TrimSpace(query.VehicleID),
		Status:      strings.TrimSpace(query.Status),
		VehicleSync: strings.TrimSpace(query.VehicleSync),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteSale(c *gin.Context) {
	resp, err := s.saleSvc.Complete(c.Request.Context(), saledomain.CompleteSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSale(c *gin.Context) {
	resp, err := s.saleSvc.Cancel(c.Request.Context(), saledomain.CancelSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSale(c *gin.Context) {
	err := s.saleSvc.Delete(c.Request.Context(), saledomain.DeleteSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) SummarizeSales(c *gin.Context) {
	var query struct {
		VehicleID string `form:"vehicle_id"`
		Status    string `form:"status"`
		From      string `form:"from"`
		To        string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.saleSvc.Summarize(c.Request.Context(), saledomain.SummarizeSalesRequest{
		VehicleID: strings.TrimSpace(query.VehicleID),
		Status:    strings.TrimSpace(query.Status),
		From:      from,
		To:        to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUnsyncedSales(c *gin.Context) {
	resp, err := s.saleSvc.ListCompletedUnsynced(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSaleValidationError(err error) bool {
	switch err {
	case saledomain.ErrInvalidID,
		saledomain.ErrInvalidVehicle,
		saledomain.ErrInvalidCustomer,
		saledomain.ErrInvalidSalePrice,
		saledomain.ErrInvalidDiscount,
		saledomain.ErrInvalidTaxRate:
		return true
	default:
		return false
	}
}
