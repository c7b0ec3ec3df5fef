package service

import (
	"time"

	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
)

// composeView builds a fresh redacted view from the vehicle row and its
// resolved references. Every call returns a new projection: holding a
// reference to a previously composed view can never expose fields another
// profile would have stripped.
func composeView(vehicle *domain.Vehicle, refs resolved, profile domain.Profile) domain.VehicleView {
	view := domain.VehicleView{
		ID:          vehicle.ID.String(),
		Year:        vehicle.Year,
		Trim:        vehicle.Trim,
		Condition:   vehicle.Condition,
		Make:        refs.makeRef,
		Model:       refs.modelRef,
		VehicleType: refs.vehicleType,
		Status:      refs.status,
		DriveType:   refs.driveType,
		Engine: domain.EngineView{
			FuelType:      refs.fuelType,
			Cylinders:     vehicle.EngineCylinders,
			DisplacementL: vehicle.EngineDisplacement,
		},
		Transmission: domain.TransmissionView{
			Type:   refs.transmission,
			Speeds: vehicle.TransmissionSpeeds,
		},
		Odometer: domain.OdometerView{
			Value: vehicle.OdometerValue,
			Unit:  vehicle.OdometerUnit,
		},
		Pricing: domain.PricingView{
			ListPrice: vehicle.ListPrice,
			Currency:  vehicle.Currency,
			TaxRate:   vehicle.TaxRate,
		},
		Marketing: domain.MarketingView{
			Slug:        vehicle.Slug,
			Description: vehicle.Description,
			Featured:    vehicle.Featured,
			Keywords:    append([]string(nil), vehicle.Keywords...),
		},
		Images:    append([]string(nil), vehicle.Images...),
		CreatedAt: vehicle.CreatedAt,
		UpdatedAt: vehicle.UpdatedAt,
	}
	if vehicle.VIN != nil {
		view.VIN = *vehicle.VIN
	}

	if profile == domain.ProfilePublicSlug {
		return view
	}

	profitLoss, profitMargin := VehicleProfit(vehicle.ListPrice, vehicle.ActualSalePrice, vehicle.AcquisitionCost)
	internal := &domain.InternalView{
		StockNumber:     vehicle.StockNumber,
		AcquisitionDate: copyTime(vehicle.AcquisitionDate),
		AcquisitionCost: copyFloat(vehicle.AcquisitionCost),
		ActualSalePrice: copyFloat(vehicle.ActualSalePrice),
		SoldDate:        copyTime(vehicle.SoldDate),
		ProfitLoss:      profitLoss,
		ProfitMargin:    profitMargin,
	}
	if vehicle.SaleTransactionID != nil {
		internal.SaleTransactionID = vehicle.SaleTransactionID.String()
	}
	if vehicle.SalespersonID != nil {
		internal.SalespersonID = vehicle.SalespersonID.String()
	}

	if profile == domain.ProfileInternal {
		internal.Notes = vehicle.InternalNotes
		internal.TargetProfit = copyFloat(vehicle.TargetProfit)
	}

	view.Internal = internal
	return view
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
