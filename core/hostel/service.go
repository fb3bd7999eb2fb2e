package hostel

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

var errRoomFull = core.NewValidationError(nil, core.FieldError{Field: "room_id", Error: "room is full"})

type (
	Repository interface {
		CreateHostel(ctx context.Context, scope auth.Scope, h Hostel) (Hostel, error)
		QueryHostels(ctx context.Context, scope auth.Scope) ([]Hostel, error)
		GetHostel(ctx context.Context, scope auth.Scope, id string) (Hostel, error)

		CreateRoom(ctx context.Context, scope auth.Scope, r Room) (Room, error)
		QueryRooms(ctx context.Context, scope auth.Scope, hostelID string) ([]Room, error)
		GetRoom(ctx context.Context, scope auth.Scope, id string) (Room, error)
		// OccupyBed increments Room.Occupied in a single conditional update.
		// It returns false when the room was already full.
		OccupyBed(ctx context.Context, scope auth.Scope, roomID string) (bool, error)
		// ReleaseBed decrements Room.Occupied, never below zero.
		ReleaseBed(ctx context.Context, scope auth.Scope, roomID string) error

		CreateAllocation(ctx context.Context, scope auth.Scope, a Allocation) (Allocation, error)
		QueryAllocations(ctx context.Context, scope auth.Scope, roomID string) ([]Allocation, error)
		GetAllocation(ctx context.Context, scope auth.Scope, id string) (Allocation, error)
		DeleteAllocation(ctx context.Context, scope auth.Scope, id string) error
	}

	// StudentChecker resolves students within a scope.
	StudentChecker interface {
		StudentExists(ctx context.Context, scope auth.Scope, id string) error
	}

	Service struct {
		repo     Repository
		students StudentChecker
		authz    *auth.Authorizer
		logger   core.Logger
	}
)

func NewService(repo Repository, students StudentChecker, authz *auth.Authorizer, logger core.Logger) *Service {
	return &Service{repo: repo, students: students, authz: authz, logger: logger}
}

func (svc *Service) CreateHostel(ctx context.Context, p auth.Principal, schoolID string, nh NewHostel) (Hostel, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Write)
	if err != nil {
		return Hostel{}, err
	}
	return svc.repo.CreateHostel(ctx, scope, Hostel{Name: nh.Name, Warden: nh.Warden})
}

func (svc *Service) QueryHostels(ctx context.Context, p auth.Principal, schoolID string) ([]Hostel, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryHostels(ctx, scope)
}

func (svc *Service) GetHostel(ctx context.Context, p auth.Principal, schoolID, id string) (Hostel, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Read)
	if err != nil {
		return Hostel{}, err
	}
	return svc.repo.GetHostel(ctx, scope, id)
}

// CreateRoom adds a room to a hostel of the same school.
// The store rejects a second room with the same number in the hostel.
func (svc *Service) CreateRoom(ctx context.Context, p auth.Principal, schoolID string, nr NewRoom) (Room, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Write)
	if err != nil {
		return Room{}, err
	}
	if _, err = svc.repo.GetHostel(ctx, scope, nr.HostelID); err != nil {
		return Room{}, err
	}
	return svc.repo.CreateRoom(ctx, scope, Room{HostelID: nr.HostelID, Number: nr.Number, Capacity: nr.Capacity})
}

func (svc *Service) QueryRooms(ctx context.Context, p auth.Principal, schoolID, hostelID string) ([]Room, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryRooms(ctx, scope, core.CleanString(hostelID))
}

func (svc *Service) GetRoom(ctx context.Context, p auth.Principal, schoolID, id string) (Room, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Read)
	if err != nil {
		return Room{}, err
	}
	return svc.repo.GetRoom(ctx, scope, id)
}

// Allocate gives a student a bed. The bed is taken first; when the allocation cannot be stored
// (eg. the student already has a bed) the bed is released again. The two writes are not atomic.
func (svc *Service) Allocate(ctx context.Context, p auth.Principal, schoolID string, na NewAllocation) (Allocation, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Write)
	if err != nil {
		return Allocation{}, err
	}
	if _, err = svc.repo.GetRoom(ctx, scope, na.RoomID); err != nil {
		return Allocation{}, err
	}
	if err = svc.students.StudentExists(ctx, scope, na.StudentID); err != nil {
		return Allocation{}, errors.Wrap(err, "getting student")
	}

	ok, err := svc.repo.OccupyBed(ctx, scope, na.RoomID)
	if err != nil {
		return Allocation{}, errors.Wrap(err, "occupying bed")
	}
	if !ok {
		return Allocation{}, errRoomFull
	}
	alloc, err := svc.repo.CreateAllocation(ctx, scope, Allocation{RoomID: na.RoomID, StudentID: na.StudentID, AllocatedBy: p.UserID})
	if err != nil {
		if rErr := svc.repo.ReleaseBed(ctx, scope, na.RoomID); rErr != nil {
			svc.logger.Error("releasing bed", rErr, map[string]interface{}{"room_id": na.RoomID})
		}
		return Allocation{}, err
	}
	return alloc, nil
}

func (svc *Service) QueryAllocations(ctx context.Context, p auth.Principal, schoolID, roomID string) ([]Allocation, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAllocations(ctx, scope, core.CleanString(roomID))
}

// Vacate ends an allocation and frees its bed.
func (svc *Service) Vacate(ctx context.Context, p auth.Principal, schoolID, allocationID string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleHostel, auth.Write)
	if err != nil {
		return err
	}
	alloc, err := svc.repo.GetAllocation(ctx, scope, allocationID)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteAllocation(ctx, scope, alloc.ID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.ReleaseBed(ctx, scope, alloc.RoomID), "releasing bed")
}
