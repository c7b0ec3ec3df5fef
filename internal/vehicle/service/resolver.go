package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	lookupdomain "github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
)

// resolver inlines lookup projections into a vehicle view. Dangling
// references become unresolved markers; a broken foreign key must never
// fail the read.
type resolver struct {
	lookups lookupdomain.Repository
}

func (r *resolver) resolve(ctx context.Context, vehicle *domain.Vehicle, depth domain.ResolveDepth) (resolved, error) {
	if depth == domain.ResolveLight {
		return r.resolveLight(ctx, vehicle)
	}
	return r.resolveFull(ctx, vehicle)
}

// resolveLight projects name and slug for all six references in one query.
// Status display fields are a full-depth concern.
func (r *resolver) resolveLight(ctx context.Context, vehicle *domain.Vehicle) (resolved, error) {
	out := resolved{}

	rows, err := r.lookups.FindRefs(ctx, lookupdomain.RefKeys{
		MakeID:         vehicle.MakeID,
		ModelID:        vehicle.ModelID,
		VehicleTypeID:  vehicle.VehicleTypeID,
		StatusID:       vehicle.StatusID,
		DriveTypeID:    vehicle.DriveTypeID,
		FuelTypeID:     vehicle.FuelTypeID,
		TransmissionID: vehicle.TransmissionTypeID,
	})
	if err != nil {
		return out, err
	}

	for _, row := range rows {
		ref := refOf(row.ID, row.Name, row.Slug)
		switch row.Kind {
		case lookupdomain.RefKindMake:
			out.makeRef = ref
		case lookupdomain.RefKindModel:
			out.modelRef = ref
		case lookupdomain.RefKindVehicleType:
			out.vehicleType = ref
		case lookupdomain.RefKindStatus:
			out.status = domain.StatusRef{Ref: ref}
		case lookupdomain.RefKindDriveType:
			out.driveType = ref
		case lookupdomain.RefKindFuelType:
			out.fuelType = ref
		case lookupdomain.RefKindTransmission:
			out.transmission = ref
		}
	}
	return out, nil
}

func (r *resolver) resolveFull(ctx context.Context, vehicle *domain.Vehicle) (resolved, error) {
	out := resolved{}

	makeRow, err := r.lookups.FindMake(ctx, vehicle.MakeID)
	if err != nil {
		return out, err
	}
	if makeRow != nil {
		out.makeRef = refOf(makeRow.ID, makeRow.Name, makeRow.Slug)
	}

	modelRow, err := r.lookups.FindModel(ctx, vehicle.ModelID)
	if err != nil {
		return out, err
	}
	if modelRow != nil {
		out.modelRef = refOf(modelRow.ID, modelRow.Name, modelRow.Slug)
	}

	typeRow, err := r.lookups.FindVehicleType(ctx, vehicle.VehicleTypeID)
	if err != nil {
		return out, err
	}
	if typeRow != nil {
		out.vehicleType = refOf(typeRow.ID, typeRow.Name, typeRow.Slug)
	}

	statusRow, err := r.lookups.FindStatus(ctx, vehicle.StatusID)
	if err != nil {
		return out, err
	}
	if statusRow != nil {
		out.status = domain.StatusRef{Ref: refOf(statusRow.ID, statusRow.Name, statusRow.Slug)}
		out.status.DisplayColor = statusRow.DisplayColor
		out.status.IsDefault = statusRow.IsDefault
		out.status.IsActive = statusRow.IsActive
	}

	driveRow, err := r.lookups.FindDriveType(ctx, vehicle.DriveTypeID)
	if err != nil {
		return out, err
	}
	if driveRow != nil {
		out.driveType = refOf(driveRow.ID, driveRow.Name, driveRow.Slug)
	}

	fuelRow, err := r.lookups.FindFuelType(ctx, vehicle.FuelTypeID)
	if err != nil {
		return out, err
	}
	if fuelRow != nil {
		out.fuelType = refOf(fuelRow.ID, fuelRow.Name, fuelRow.Slug)
	}

	transmissionRow, err := r.lookups.FindTransmission(ctx, vehicle.TransmissionTypeID)
	if err != nil {
		return out, err
	}
	if transmissionRow != nil {
		out.transmission = refOf(transmissionRow.ID, transmissionRow.Name, transmissionRow.Slug)
	}

	return out, nil
}

// resolved holds the inlined projections for one vehicle. Zero-value refs
// carry Resolved=false, the unresolved marker.
type resolved struct {
	makeRef      domain.Ref
	modelRef     domain.Ref
	vehicleType  domain.Ref
	status       domain.StatusRef
	driveType    domain.Ref
	fuelType     domain.Ref
	transmission domain.Ref
}

func refOf(id snowflake.ID, name, slug string) domain.Ref {
	return domain.Ref{
		ID:       id.String(),
		Name:     name,
		Slug:     slug,
		Resolved: true,
	}
}
