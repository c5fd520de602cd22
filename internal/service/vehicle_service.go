package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

type VehicleRequest struct {
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year" binding:"required,gte=1900,lte=2100"`
	LicensePlate string `json:"license_plate" binding:"required"`
	VIN          string `json:"vin" binding:"omitempty,len=17"`
	OwnerName    string `json:"owner_name"`
	OwnerPhone   string `json:"owner_phone"`
}

type VehicleService interface {
	List(ctx context.Context, tenantID string, page, limit int) ([]model.Vehicle, int64, error)
	Get(ctx context.Context, tenantID, id string) (*model.Vehicle, error)
	Create(ctx context.Context, tenantID string, req VehicleRequest) (*model.Vehicle, error)
	Update(ctx context.Context, tenantID, id string, req VehicleRequest) (*model.Vehicle, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type vehicleService struct {
	repo repository.VehicleRepository
}

func NewVehicleService(repo repository.VehicleRepository) VehicleService {
	return &vehicleService{repo: repo}
}

func (s *vehicleService) List(ctx context.Context, tenantID string, page, limit int) ([]model.Vehicle, int64, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, 0, errors.New("invalid tenant id")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListByTenant(ctx, tid, (page-1)*limit, limit)
}

func (s *vehicleService) Get(ctx context.Context, tenantID, id string) (*model.Vehicle, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("vehicle not found")
	}
	vid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("vehicle not found")
	}
	vehicle, err := s.repo.FindByID(ctx, tid, vid)
	if err != nil {
		return nil, errors.New("vehicle not found")
	}
	return vehicle, nil
}

func (s *vehicleService) Create(ctx context.Context, tenantID string, req VehicleRequest) (*model.Vehicle, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invalid tenant id")
	}

	vehicle := &model.Vehicle{
		TenantID:     tid,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		VIN:          req.VIN,
		OwnerName:    req.OwnerName,
		OwnerPhone:   req.OwnerPhone,
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *vehicleService) Update(ctx context.Context, tenantID, id string, req VehicleRequest) (*model.Vehicle, error) {
	vehicle, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	vehicle.Make = req.Make
	vehicle.Model = req.Model
	vehicle.Year = req.Year
	vehicle.LicensePlate = req.LicensePlate
	vehicle.VIN = req.VIN
	vehicle.OwnerName = req.OwnerName
	vehicle.OwnerPhone = req.OwnerPhone

	if err := s.repo.Update(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *vehicleService) Delete(ctx context.Context, tenantID, id string) error {
	vehicle, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, vehicle.TenantID, vehicle.ID)
}
