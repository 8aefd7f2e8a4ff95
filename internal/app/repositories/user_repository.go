package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/dberrors"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/logger"
)

const userColumns = "id, email, password_hash, first_name, last_name, role_type, active_child_id, last_login_at, created_at"

// UserRepository handles user and parent/child link database operations
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.RoleType,
		&user.ActiveChildID,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID, or nil when no such user exists
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns).
		From("users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		logger.Error().Err(err).Int64("userID", id).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email, or nil when no such user exists
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns).
		From("users").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user by email query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user and returns its ID
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	sql, args, err := r.sb.Insert("users").
		Columns("email", "password_hash", "first_name", "last_name", "role_type", "created_at").
		Values(user.Email, user.PasswordHash, user.FirstName, user.LastName, user.RoleType, time.Now()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create user query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return 0, fmt.Errorf("error creating user: %w", err)
	}

	user.ID = id
	return id, nil
}

// UpdateLastLogin stamps the user's last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("users").
		Set("last_login_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update last login query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

// UpdateActiveChild sets (or clears, with nil) the parent's selected child
func (r *UserRepository) UpdateActiveChild(ctx context.Context, parentID int64, childID *int64) error {
	sql, args, err := r.sb.Update("users").
		Set("active_child_id", childID).
		Where(squirrel.Eq{"id": parentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update active child query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("parentID", parentID).Msg("Error updating active child")
		return fmt.Errorf("error updating active child: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetChildren returns the users linked to the parent as children
func (r *UserRepository) GetChildren(ctx context.Context, parentID int64) ([]*models.User, error) {
	sql, args, err := r.sb.Select(
		"u.id", "u.email", "u.password_hash", "u.first_name", "u.last_name",
		"u.role_type", "u.active_child_id", "u.last_login_at", "u.created_at").
		From("parent_children pc").
		Join("users u ON u.id = pc.child_id").
		Where(squirrel.Eq{"pc.parent_id": parentID}).
		OrderBy("u.first_name", "u.last_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get children query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("parentID", parentID).Msg("Error querying children")
		return nil, fmt.Errorf("error retrieving children: %w", err)
	}
	defer rows.Close()

	var children []*models.User
	for rows.Next() {
		var child models.User
		if err := rows.Scan(
			&child.ID, &child.Email, &child.PasswordHash, &child.FirstName, &child.LastName,
			&child.RoleType, &child.ActiveChildID, &child.LastLoginAt, &child.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning child row: %w", err)
		}
		children = append(children, &child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children rows: %w", err)
	}
	return children, nil
}

// IsChildLinked reports whether the child is linked to the parent
func (r *UserRepository) IsChildLinked(ctx context.Context, parentID, childID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("parent_children").
		Where(squirrel.Eq{"parent_id": parentID, "child_id": childID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build child link query: %w", err)
	}

	var one int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error checking child link: %w", err)
	}
	return true, nil
}

// LinkChild links a child account to a parent account
func (r *UserRepository) LinkChild(ctx context.Context, parentID, childID int64) error {
	sql, args, err := r.sb.Insert("parent_children").
		Columns("parent_id", "child_id", "created_at").
		Values(parentID, childID, time.Now()).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build link child query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("parentID", parentID).Int64("childID", childID).Msg("Error linking child")
		return fmt.Errorf("error linking child: %w", err)
	}
	return nil
}
