package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/hostel"
)

type hostelRepository struct {
	base
}

var _ hostel.Repository = (*hostelRepository)(nil) // interface compliance check

func NewHostelRepository(db *gorm.DB, observer ConstraintObserver) *hostelRepository {
	return &hostelRepository{base{db: db, observer: observer}}
}

func (repo hostelRepository) CreateHostel(ctx context.Context, scope auth.Scope, h hostel.Hostel) (hostel.Hostel, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Hostel{}, err
	}
	h.ID, h.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &h, "hostel", "name"); err != nil {
		return hostel.Hostel{}, err
	}
	return h, nil
}

func (repo hostelRepository) QueryHostels(ctx context.Context, scope auth.Scope) ([]hostel.Hostel, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var hostels []hostel.Hostel
	if err = tx.Order("name ASC").Find(&hostels).Error; err != nil {
		return nil, repo.translate(err, "querying hostels", "hostel")
	}
	return hostels, nil
}

func (repo hostelRepository) GetHostel(ctx context.Context, scope auth.Scope, id string) (hostel.Hostel, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Hostel{}, err
	}
	var h hostel.Hostel
	if err = repo.first(tx, &h, id, "hostel"); err != nil {
		return hostel.Hostel{}, err
	}
	return h, nil
}

func (repo hostelRepository) CreateRoom(ctx context.Context, scope auth.Scope, r hostel.Room) (hostel.Room, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Room{}, err
	}
	r.ID, r.SchoolID, r.Occupied = newID(), scope.SchoolID(), 0
	if err = repo.insert(tx, &r, "room", "number"); err != nil {
		return hostel.Room{}, err
	}
	return r, nil
}

func (repo hostelRepository) QueryRooms(ctx context.Context, scope auth.Scope, hostelID string) ([]hostel.Room, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if hostelID != "" {
		tx = tx.Where("hostel_id = ?", hostelID)
	}
	var rooms []hostel.Room
	if err = tx.Order("number ASC").Find(&rooms).Error; err != nil {
		return nil, repo.translate(err, "querying rooms", "room")
	}
	return rooms, nil
}

func (repo hostelRepository) GetRoom(ctx context.Context, scope auth.Scope, id string) (hostel.Room, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Room{}, err
	}
	var r hostel.Room
	if err = repo.first(tx, &r, id, "room"); err != nil {
		return hostel.Room{}, err
	}
	return r, nil
}

func (repo hostelRepository) OccupyBed(ctx context.Context, scope auth.Scope, roomID string) (bool, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return false, err
	}
	res := tx.Model(&hostel.Room{}).
		Where("id = ? AND occupied < capacity", roomID).
		Update("occupied", gorm.Expr("occupied + 1"))
	if err = repo.translate(res.Error, "occupying bed", "room"); err != nil {
		return false, err
	}
	return res.RowsAffected == 1, nil
}

func (repo hostelRepository) ReleaseBed(ctx context.Context, scope auth.Scope, roomID string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	res := tx.Model(&hostel.Room{}).
		Where("id = ? AND occupied > 0", roomID).
		Update("occupied", gorm.Expr("occupied - 1"))
	return repo.translate(res.Error, "releasing bed", "room")
}

func (repo hostelRepository) CreateAllocation(ctx context.Context, scope auth.Scope, a hostel.Allocation) (hostel.Allocation, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Allocation{}, err
	}
	a.ID, a.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &a, "allocation", "student_id"); err != nil {
		return hostel.Allocation{}, err
	}
	return a, nil
}

func (repo hostelRepository) QueryAllocations(ctx context.Context, scope auth.Scope, roomID string) ([]hostel.Allocation, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if roomID != "" {
		tx = tx.Where("room_id = ?", roomID)
	}
	var allocations []hostel.Allocation
	if err = tx.Order("created_at ASC").Find(&allocations).Error; err != nil {
		return nil, repo.translate(err, "querying allocations", "allocation")
	}
	return allocations, nil
}

func (repo hostelRepository) GetAllocation(ctx context.Context, scope auth.Scope, id string) (hostel.Allocation, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return hostel.Allocation{}, err
	}
	var a hostel.Allocation
	if err = repo.first(tx, &a, id, "allocation"); err != nil {
		return hostel.Allocation{}, err
	}
	return a, nil
}

func (repo hostelRepository) DeleteAllocation(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &hostel.Allocation{}, id, "allocation")
}
