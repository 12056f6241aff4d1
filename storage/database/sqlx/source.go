package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/storage/database"
)

var oldestFirst = core.DBOrdering{Field: `"createdAt"`, Ascending: true}

type sourceRepository struct {
	db core.DBExecutor
}

var _ source.Repository = (*sourceRepository)(nil)

// NewSourceRepository reads the v3 store. It never writes.
func NewSourceRepository(db core.DBExecutor) source.Repository {
	return &sourceRepository{db: db}
}

func (repo *sourceRepository) CourseKeys(ctx context.Context) ([]source.KeyRow, error) {
	rows := make([]source.KeyRow, 0)
	q := fmt.Sprintf(`SELECT "id", "slug" AS "key" FROM "Course" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting course keys")
	}
	return rows, nil
}

func (repo *sourceRepository) StudentKeys(ctx context.Context) ([]source.KeyRow, error) {
	rows := make([]source.KeyRow, 0)
	q := fmt.Sprintf(`SELECT "id", "email" AS "key" FROM "Student" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting student keys")
	}
	return rows, nil
}

func (repo *sourceRepository) Courses(ctx context.Context) ([]source.Course, error) {
	rows := make([]source.Course, 0)
	q := fmt.Sprintf(`
		SELECT "id", "slug", "title", "type", "status", COALESCE("totalDuration", 0) AS "totalDuration",
			COALESCE("classDates"::text[], '{}') AS "classDates", "examDate", "location",
			"priceUSD", "priceUYU", "educatorId", "createdAt"
		FROM "Course" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return rows, nil
}

func (repo *sourceRepository) Students(ctx context.Context) ([]source.Student, error) {
	rows := make([]source.Student, 0)
	q := fmt.Sprintf(`
		SELECT "id", "email", "firstName", "lastName", "phone", "createdAt"
		FROM "Student" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return rows, nil
}

func (repo *sourceRepository) Orders(ctx context.Context) ([]source.Order, error) {
	rows := make([]source.Order, 0)
	q := fmt.Sprintf(`
		SELECT "id", "studentId", "courseId", "status", "amount", "currency", "paymentMethod",
			"couponId", "bankDataId", "createdAt", COALESCE("updatedAt", "createdAt") AS "updatedAt"
		FROM "Order" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting orders")
	}
	return rows, nil
}

func (repo *sourceRepository) BankData(ctx context.Context) ([]source.BankData, bool, error) {
	rows := make([]source.BankData, 0)
	q := fmt.Sprintf(`SELECT "id", "name", COALESCE("info", '') AS "info", "createdAt" FROM "BankData" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		if database.IsUndefinedTable(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "selecting bank data")
	}
	return rows, true, nil
}

func (repo *sourceRepository) Coupons(ctx context.Context) ([]source.Coupon, bool, error) {
	rows := make([]source.Coupon, 0)
	q := fmt.Sprintf(`
		SELECT "id", "code", "discount", "maxUses", COALESCE("uses", 0) AS "uses", "expiresAt",
			"courseId", "email", "createdAt"
		FROM "Coupon" ORDER BY %s`, oldestFirst)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		if database.IsUndefinedTable(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "selecting coupons")
	}
	return rows, true, nil
}
