package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bilawal506/online-mart/internal/domain"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const userColumns = "id, username, password, phone_number, email, role"

var uniqueColumnErrors = map[string]error{
	"id":           errs.ErrUserIDTaken,
	"username":     errs.ErrUsernameTaken,
	"email":        errs.ErrEmailAlreadyUsed,
	"phone_number": errs.ErrPhoneNumberTaken,
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func CreateNewUserRepository(db *sqlx.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// AddUser inserts the user and returns the stored row. A zero ID lets the
// database assign one, and an explicit ID moves the id sequence past it. Duplicates are detected by the unique constraints, not
// by reading first.
func (r *UserRepositoryImpl) AddUser(ctx context.Context, data domain.User) (res domain.User, err error) {
	query := "INSERT INTO users (id, username, password, phone_number, email, role) VALUES (:id, :username, :password, :phone_number, :email, :role) RETURNING " + userColumns
	if data.ID == 0 {
		query = "INSERT INTO users (username, password, phone_number, email, role) VALUES (:username, :password, :phone_number, :email, :role) RETURNING " + userColumns
	}

	nstmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddUser").Msg("")
		return res, fmt.Errorf("prepare insert user: %w", err)
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &res, data)
	if err != nil {
		if column, ok := database.UniqueViolation(err); ok {
			if mapped, found := uniqueColumnErrors[column]; found {
				return res, mapped
			}
			return res, fmt.Errorf("%w: duplicate %s", errs.ErrClient, column)
		}

		log.Ctx(ctx).Error().Err(err).Str("component", "AddUser").Msg("")
		return res, fmt.Errorf("insert user: %w", err)
	}

	if data.ID != 0 {
		// The row is in; a stale sequence only affects later generated ids.
		if err := database.AdvanceSequence(ctx, r.db, "users", "id", data.ID); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "AddUser").Msg("")
		}
	}

	return res, nil
}

func (r *UserRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (res domain.User, err error) {
	return r.getUserBy(ctx, "GetUserByUsername", "username", username)
}

func (r *UserRepositoryImpl) GetUserByEmail(ctx context.Context, email string) (res domain.User, err error) {
	return r.getUserBy(ctx, "GetUserByEmail", "email", email)
}

func (r *UserRepositoryImpl) GetUserByID(ctx context.Context, id int64) (res domain.User, err error) {
	return r.getUserBy(ctx, "GetUserByID", "id", id)
}

func (r *UserRepositoryImpl) getUserBy(ctx context.Context, component string, column string, value interface{}) (res domain.User, err error) {
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	err = r.db.GetContext(ctx, &res, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return res, errs.ErrUserNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", component).Msg("")
		return res, fmt.Errorf("get user by %s: %w", column, err)
	}

	return res, nil
}

func (r *UserRepositoryImpl) GetUsers(ctx context.Context, filter pkgdto.Filter) (data []domain.User, err error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY id"
	args := []interface{}{}

	if offset := filter.Offset(); offset >= 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, offset)
	}

	data = []domain.User{}
	err = r.db.SelectContext(ctx, &data, r.db.Rebind(query), args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetUsers").Msg("")
		return nil, fmt.Errorf("get users: %w", err)
	}

	return data, nil
}

func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, email string, hashedPassword string) (err error) {
	query := r.db.Rebind("UPDATE users SET password = ? WHERE email = ?")
	res, err := r.db.ExecContext(ctx, query, hashedPassword, email)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpdatePassword").Msg("")
		return fmt.Errorf("update password: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return errs.ErrUserNotFound
	}

	return nil
}

func (r *UserRepositoryImpl) DeleteUser(ctx context.Context, id int64) (res domain.User, err error) {
	query := r.db.Rebind("DELETE FROM users WHERE id = ? RETURNING " + userColumns)
	err = r.db.GetContext(ctx, &res, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return res, errs.ErrUserNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "DeleteUser").Int64("id", id).Msg("")
		return res, fmt.Errorf("delete user %d: %w", id, err)
	}

	return res, nil
}
