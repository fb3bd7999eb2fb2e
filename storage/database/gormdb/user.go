package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB, observer ConstraintObserver) *userRepository {
	return &userRepository{base{db: db, observer: observer}}
}

func (repo userRepository) CreateUser(ctx context.Context, scope auth.Scope, usr user.User) (user.User, error) {
	if scope.IsZero() {
		return user.User{}, errUnscoped
	}
	usr.ID = newID()
	usr.SchoolID = nullString(scope.SchoolID())
	if err := repo.insert(repo.db.WithContext(ctx), &usr, "user", "username", "email"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) CreateSuperAdmin(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	usr.SchoolID = nullString("")
	usr.Role = auth.RoleSuperAdmin
	if err := repo.insert(repo.db.WithContext(ctx), &usr, "user", "username", "email"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, scope auth.Scope, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	filter.Clean()

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := likePattern(filter.Search)
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", val, val, val)
	}
	if len(filter.Roles) > 0 {
		tx = tx.Where("role IN ?", filter.Roles)
	}
	if filter.IsActive != nil {
		tx = tx.Where("is_active = ?", *filter.IsActive)
	}
	tx = order(tx, orderings, "name ASC", "name", "username", "email", "role", "created_at", "last_login")

	var users []user.User
	if err = tx.Find(&users).Error; err != nil {
		return nil, repo.translate(err, "querying users", "user")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, scope auth.Scope, id string) (user.User, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return user.User{}, err
	}
	var usr user.User
	if err = repo.first(tx, &usr, id, "user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, scope auth.Scope, usr user.User) (user.User, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return user.User{}, err
	}
	usr.SchoolID = nullString(scope.SchoolID())
	if err = repo.update(tx, &usr, "user", "username", "email"); err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, scope, usr.ID)
}

func (repo userRepository) DeleteUser(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &user.User{}, id, "user")
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	if err := repo.first(repo.db.WithContext(ctx), &usr, id, "user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error) {
	var usr user.User
	err := repo.db.WithContext(ctx).Where("username = ? OR email = ?", identifier, identifier).First(&usr).Error
	if err != nil {
		return user.User{}, repo.translate(err, "finding user by username or email", "user")
	}
	return usr, nil
}

func (repo userRepository) SaveCredentials(ctx context.Context, usr user.User) (user.User, error) {
	res := repo.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", usr.ID).Updates(map[string]interface{}{
		"password_hash":        usr.PasswordHash,
		"must_change_password": usr.MustChangePassword,
		"last_login":           usr.LastLogin,
	})
	if err := repo.translate(res.Error, "saving credentials", "user"); err != nil {
		return user.User{}, err
	}
	if res.RowsAffected == 0 {
		return user.User{}, core.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}
