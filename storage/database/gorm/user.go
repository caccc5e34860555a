package gormrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRow struct {
	ID           string         `gorm:"column:id;primaryKey"`
	Name         null.String    `gorm:"column:name"`
	Username     null.String    `gorm:"column:username"`
	Email        null.String    `gorm:"column:email"`
	IsActive     bool           `gorm:"column:is_active"`
	IsVerified   bool           `gorm:"column:is_verified"`
	Roles        pq.StringArray `gorm:"column:roles;type:text[]"`
	PasswordHash null.Bytes     `gorm:"column:password_hash"`
	CreatedAt    null.Time      `gorm:"column:created_at"`
	UpdatedAt    null.Time      `gorm:"column:updated_at"`
	LastLogin    null.Time      `gorm:"column:last_login"`
}

func (userRow) TableName() string { return "users" }

type userRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) *userRow {
	row := &userRow{
		Name:         null.NewString(usr.Name, usr.Name != ""),
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		IsVerified:   usr.IsVerified,
		Roles:        usr.Roles,
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    usr.LastLogin,
	}
	if usr.ID != "" {
		row.ID = usr.ID
	}
	return row
}

func (repo userRepository) toUser(row *userRow) user.User {
	if row == nil {
		return user.User{}
	}
	return user.User{
		ID:           row.ID,
		Name:         row.Name.String,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		IsVerified:   row.IsVerified,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin,
	}
}

func (repo userRepository) toUserSlice(rows []*userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.toUser(row))
	}
	return users
}

// trapNoRowsErr maps gorm's "record not found" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := repo.db.WithContext(ctx).Model(&userRow{}).Where("username = ? OR email = ?", username, email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	if err := repo.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.toUser(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := repo.db.WithContext(ctx).Model(&userRow{})

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			var roleQ *gorm.DB
			cond := "id IN (SELECT id FROM users, UNNEST(roles) user_role WHERE user_role ILIKE ?)"
			for _, role := range filter.Roles {
				if roleQ == nil {
					roleQ = repo.db.Where(cond, role+"%")
				} else {
					roleQ = roleQ.Or(cond, role+"%")
				}
			}
			q = q.Where(roleQ)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.IsVerified != nil {
			q = q.Where("is_verified = ?", *filter.IsVerified)
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	if ordering != nil {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q = q.Order(strings.Join(orderList, ", "))
	}

	var rows []*userRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.toUserSlice(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := repo.db.WithContext(ctx)

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	} else if filter.Username != "" {
		q = q.Where("username = ?", filter.Username)
	} else if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	} else if filter.UsernameOrEmail != nil {
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" && email == "" {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("username = ? OR email = ?", uname, email)
	} else {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := q.First(&row).Error; err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.toUser(&row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.toRow(usr)
	if err := repo.db.WithContext(ctx).Save(row).Error; err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.toUser(row), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	res := repo.db.WithContext(ctx).Where("id IN ?", ids).Delete(&userRow{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting users")
	}
	return int(res.RowsAffected), nil
}
