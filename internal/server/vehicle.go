package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	vehicledomain "github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
)

type createVehicleRequest struct {
	VIN           string `json:"vin"`
	Year          int    `json:"year"`
	Trim          string `json:"trim"`
	MakeID        string `json:"make_id"`
	ModelID       string `json:"model_id"`
	VehicleTypeID string `json:"vehicle_type_id"`
	StatusID      string `json:"status_id"`
	DriveTypeID   string `json:"drive_type_id"`

	FuelTypeID         string  `json:"fuel_type_id"`
	EngineCylinders    int     `json:"engine_cylinders"`
	EngineDisplacement float64 `json:"engine_displacement"`
	TransmissionTypeID string  `json:"transmission_type_id"`
	TransmissionSpeeds int     `json:"transmission_speeds"`

	OdometerValue int64  `json:"odometer_value"`
	OdometerUnit  string `json:"odometer_unit"`
	Condition     string `json:"condition"`

	ListPrice float64 `json:"list_price"`
	Currency  string  `json:"currency"`
	TaxRate   float64 `json:"tax_rate"`

	AcquisitionDate string   `json:"acquisition_date"`
	AcquisitionCost *float64 `json:"acquisition_cost"`
	SalespersonID   string   `json:"salesperson_id"`
	InternalNotes   string   `json:"internal_notes"`
	TargetProfit    *float64 `json:"target_profit"`

	Description string   `json:"description"`
	Featured    bool     `json:"featured"`
	Keywords    []string `json:"keywords"`
	Images      []string `json:"images"`
}

func (s *Server) CreateVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	acquisitionDate, err := parseOptionalTime(req.AcquisitionDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("acquisition_date", "invalid_acquisition_date", "invalid acquisition_date"))
		return
	}

	resp, err := s.vehicleSvc.Create(c.Request.Context(), vehicledomain.CreateVehicleRequest{
		VIN:                strings.TrimSpace(req.VIN),
		Year:               req.Year,
		Trim:               strings.TrimSpace(req.Trim),
		MakeID:             strings.TrimSpace(req.MakeID),
		ModelID:            strings.TrimSpace(req.ModelID),
		VehicleTypeID:      strings.TrimSpace(req.VehicleTypeID),
		StatusID:           strings.TrimSpace(req.StatusID),
		DriveTypeID:        strings.TrimSpace(req.DriveTypeID),
		FuelTypeID:         strings.TrimSpace(req.FuelTypeID),
		EngineCylinders:    req.EngineCylinders,
		EngineDisplacement: req.EngineDisplacement,
		TransmissionTypeID: strings.TrimSpace(req.TransmissionTypeID),
		TransmissionSpeeds: req.TransmissionSpeeds,
		OdometerValue:      req.OdometerValue,
		OdometerUnit:       strings.TrimSpace(req.OdometerUnit),
		Condition:          vehicledomain.Condition(strings.TrimSpace(req.Condition)),
		ListPrice:          req.ListPrice,
		Currency:           strings.TrimSpace(req.Currency),
		TaxRate:            req.TaxRate,
		AcquisitionDate:    acquisitionDate,
		AcquisitionCost:    req.AcquisitionCost,
		SalespersonID:      strings.TrimSpace(req.SalespersonID),
		InternalNotes:      req.InternalNotes,
		TargetProfit:       req.TargetProfit,
		Description:        req.Description,
		Featured:           req.Featured,
		Keywords:           req.Keywords,
		Images:             req.Images,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateVehicleRequest struct {
	VIN           *string `json:"vin"`
	Year          *int    `json:"year"`
	Trim          *string `json:"trim"`
	MakeID        *string `json:"make_id"`
	ModelID       *string `json:"model_id"`
	VehicleTypeID *string `json:"vehicle_type_id"`
	StatusID      *string `json:"status_id"`
	DriveTypeID   *string `json:"drive_type_id"`

	FuelTypeID         *string  `json:"fuel_type_id"`
	EngineCylinders    *int     `json:"engine_cylinders"`
	EngineDisplacement *float64 `json:"engine_displacement"`
	TransmissionTypeID *string  `json:"transmission_type_id"`
	TransmissionSpeeds *int     `json:"transmission_speeds"`

	OdometerValue *int64  `json:"odometer_value"`
	OdometerUnit  *string `json:"odometer_unit"`
	Condition     *string `json:"condition"`

	ListPrice *float64 `json:"list_price"`
	Currency  *string  `json:"currency"`
	TaxRate   *float64 `json:"tax_rate"`

	AcquisitionDate *string  `json:"acquisition_date"`
	AcquisitionCost *float64 `json:"acquisition_cost"`
	ActualSalePrice *float64 `json:"actual_sale_price"`
	SalespersonID   *string  `json:"salesperson_id"`
	InternalNotes   *string  `json:"internal_notes"`
	TargetProfit    *float64 `json:"target_profit"`

	Description *string  `json:"description"`
	Featured    *bool    `json:"featured"`
	Keywords    []string `json:"keywords"`
	Images      []string `json:"images"`
}

func (s *Server) UpdateVehicle(c *gin.Context) {
	var req updateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := vehicledomain.UpdateVehicleRequest{
		ID:                 strings.TrimSpace(c.Param("id")),
		VIN:                req.VIN,
		Year:               req.Year,
		Trim:               req.Trim,
		MakeID:             req.MakeID,
		ModelID:            req.ModelID,
		VehicleTypeID:      req.VehicleTypeID,
		StatusID:           req.StatusID,
		DriveTypeID:        req.DriveTypeID,
		FuelTypeID:         req.FuelTypeID,
		EngineCylinders:    req.EngineCylinders,
		EngineDisplacement: req.EngineDisplacement,
		TransmissionTypeID: req.TransmissionTypeID,
		TransmissionSpeeds: req.TransmissionSpeeds,
		OdometerValue:      req.OdometerValue,
		OdometerUnit:       req.OdometerUnit,
		ListPrice:          req.ListPrice,
		Currency:           req.Currency,
		TaxRate:            req.TaxRate,
		AcquisitionCost:    req.AcquisitionCost,
		ActualSalePrice:    req.ActualSalePrice,
		SalespersonID:      req.SalespersonID,
		InternalNotes:      req.InternalNotes,
		TargetProfit:       req.TargetProfit,
		Description:        req.Description,
		Featured:           req.Featured,
		Keywords:           req.Keywords,
		Images:             req.Images,
	}
	if req.Condition != nil {
		condition := vehicledomain.Condition(strings.TrimSpace(*req.Condition))
		update.Condition = &condition
	}
	if req.AcquisitionDate != nil {
		acquisitionDate, err := parseOptionalTime(*req.AcquisitionDate, false)
		if err != nil {
			AbortWithError(c, newValidationError("acquisition_date", "invalid_acquisition_date", "invalid acquisition_date"))
			return
		}
		update.AcquisitionDate = acquisitionDate
	}

	resp, err := s.vehicleSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVehicleByID(c *gin.Context) {
	resp, err := s.vehicleSvc.GetView(c.Request.Context(), vehicledomain.GetVehicleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVehicleBySlug(c *gin.Context) {
	resp, err := s.vehicleSvc.GetViewBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteVehicle(c *gin.Context) {
	err := s.vehicleSvc.Delete(c.Request.Context(), vehicledomain.DeleteVehicleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListVehicles(c *gin.Context) {
	s.listVehicles(c)
}

func (s *Server) ListPublicVehicles(c *gin.Context) {
	s.listVehicles(c)
}

func (s *Server) listVehicles(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Sort      string `form:"sort"`
		MakeID    string `form:"make_id"`
		ModelID   string `form:"model_id"`
		StatusID  string `form:"status_id"`
		Condition string `form:"condition"`
		Featured  string `form:"featured"`
		YearFrom  int    `form:"year_from"`
		YearTo    int    `form:"year_to"`
		PriceMin  string `form:"price_min"`
		PriceMax  string `form:"price_max"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	featured, err := parseOptionalBool(query.Featured)
	if err != nil {
		AbortWithError(c, newValidationError("featured", "invalid_featured", "invalid featured"))
		return
	}
	priceMin, err := parseOptionalFloat(query.PriceMin)
	if err != nil {
		AbortWithError(c, newValidationError("price_min", "invalid_price_min", "invalid price_min"))
		return
	}
	priceMax, err := parseOptionalFloat(query.PriceMax)
	if err != nil {
		AbortWithError(c, newValidationError("price_max", "invalid_price_max", "invalid price_max"))
		return
	}

	resp, err := s.vehicleSvc.List(c.Request.Context(), vehicledomain.ListVehiclesRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Sort:      strings.TrimSpace(query.Sort),
		MakeID:    strings.TrimSpace(query.MakeID),
		ModelID:   strings.TrimSpace(query.ModelID),
		StatusID:  strings.TrimSpace(query.StatusID),
		Condition: strings.TrimSpace(query.Condition),
		Featured:  featured,
		YearFrom:  query.YearFrom,
		YearTo:    query.YearTo,
		PriceMin:  priceMin,
		PriceMax:  priceMax,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isVehicleValidationError(err error) bool {
	switch err {
	case vehicledomain.ErrInvalidID,
		vehicledomain.ErrInvalidYear,
		vehicledomain.ErrInvalidMake,
		vehicledomain.ErrInvalidModel,
		vehicledomain.ErrInvalidCondition,
		vehicledomain.ErrInvalidListPrice,
		vehicledomain.ErrImagesRequired,
		vehicledomain.ErrInvalidSlug:
		return true
	default:
		return false
	}
}
