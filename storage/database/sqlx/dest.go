package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/status"
	"github.com/tintaacademy/migrator/storage/database"
)

type destRepository struct {
	exec core.DBExecutor
	db   core.DB // nil when bound to a transaction
}

var _ dest.Repository = (*destRepository)(nil)

func NewDestRepository(db core.DB) dest.Repository {
	return &destRepository{exec: db, db: db}
}

func (repo *destRepository) get(ctx context.Context, row interface{}, q string, args ...interface{}) error {
	return database.MapError(repo.exec.GetContext(ctx, row, q, args...))
}

func (repo *destRepository) insert(ctx context.Context, q string, row interface{}) error {
	_, err := repo.exec.NamedExecContext(ctx, q, row)
	return database.MapError(err)
}

// update runs a named update and reports core.ErrNotFound when no row matched.
func (repo *destRepository) update(ctx context.Context, q string, row interface{}) error {
	res, err := repo.exec.NamedExecContext(ctx, q, row)
	if err != nil {
		return database.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// courses

const courseColumns = `"id", "slug", "title", "type", "wsetLevel", "status", "modality", "startDate", "endDate",
	"duration", "priceUSD", "priceUYU", "enrolledCount", "createdAt", "updatedAt"`

func (repo *destRepository) CourseKeys(ctx context.Context) ([]dest.KeyRow, error) {
	rows := make([]dest.KeyRow, 0)
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT "id", "slug" AS "key" FROM "Course"`); err != nil {
		return nil, errors.Wrap(err, "selecting course keys")
	}
	return rows, nil
}

func (repo *destRepository) FindCourseBySlug(ctx context.Context, slug string) (dest.Course, error) {
	var c dest.Course
	err := repo.get(ctx, &c, `SELECT `+courseColumns+` FROM "Course" WHERE "slug" = $1`, slug)
	return c, err
}

func (repo *destRepository) InsertCourse(ctx context.Context, c dest.Course) error {
	return repo.insert(ctx, `
		INSERT INTO "Course" (`+courseColumns+`)
		VALUES (:id, :slug, :title, :type, :wsetLevel, :status, :modality, :startDate, :endDate,
			:duration, :priceUSD, :priceUYU, :enrolledCount, :createdAt, :updatedAt)`, c)
}

// users and student profiles

func (repo *destRepository) StudentKeys(ctx context.Context) ([]dest.StudentKey, error) {
	rows := make([]dest.StudentKey, 0)
	q := `
		SELECT u."id" AS "userId", s."id" AS "studentId", u."email"
		FROM "User" u LEFT JOIN "Student" s ON s."userId" = u."id"`
	if err := repo.exec.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting student keys")
	}
	return rows, nil
}

func (repo *destRepository) FindUserByEmail(ctx context.Context, email string) (dest.User, error) {
	var u dest.User
	err := repo.get(ctx, &u, `
		SELECT "id", "email", "firstName", "lastName", "role", "createdAt", "updatedAt"
		FROM "User" WHERE lower("email") = lower($1)`, email)
	return u, err
}

func (repo *destRepository) InsertUser(ctx context.Context, u dest.User) error {
	return repo.insert(ctx, `
		INSERT INTO "User" ("id", "email", "firstName", "lastName", "role", "createdAt", "updatedAt")
		VALUES (:id, :email, :firstName, :lastName, :role, :createdAt, :updatedAt)`, u)
}

func (repo *destRepository) FindStudentByUserID(ctx context.Context, userID string) (dest.Student, error) {
	var s dest.Student
	err := repo.get(ctx, &s, `
		SELECT "id", "userId", "phone", "createdAt", "updatedAt" FROM "Student" WHERE "userId" = $1`, userID)
	return s, err
}

func (repo *destRepository) InsertStudent(ctx context.Context, s dest.Student) error {
	return repo.insert(ctx, `
		INSERT INTO "Student" ("id", "userId", "phone", "createdAt", "updatedAt")
		VALUES (:id, :userId, :phone, :createdAt, :updatedAt)`, s)
}

// enrollments

func (repo *destRepository) FindEnrollment(ctx context.Context, studentID, courseID string) (dest.Enrollment, error) {
	var e dest.Enrollment
	err := repo.get(ctx, &e, `
		SELECT "id", "studentId", "courseId", "status", "enrolledAt", "createdAt", "updatedAt"
		FROM "Enrollment" WHERE "studentId" = $1 AND "courseId" = $2`, studentID, courseID)
	return e, err
}

func (repo *destRepository) InsertEnrollment(ctx context.Context, e dest.Enrollment) error {
	return repo.insert(ctx, `
		INSERT INTO "Enrollment" ("id", "studentId", "courseId", "status", "enrolledAt", "createdAt", "updatedAt")
		VALUES (:id, :studentId, :courseId, :status, :enrolledAt, :createdAt, :updatedAt)`, e)
}

func (repo *destRepository) UpdateEnrollmentStatus(ctx context.Context, e dest.Enrollment) error {
	return repo.update(ctx, `
		UPDATE "Enrollment" SET "status" = :status, "enrolledAt" = :enrolledAt, "updatedAt" = :updatedAt
		WHERE "id" = :id`, e)
}

// orders

const orderColumns = `"id", "orderNumber", "userId", "courseId", "studentId", "status", "originalPriceUSD",
	"originalPriceUYU", "discountPercent", "discountAmount", "finalAmount", "currency", "paymentMethod",
	"createdAt", "updatedAt", "paidAt", "cancelledAt", "refundedAt"`

// FindOrder returns the most recent order for the pair.
func (repo *destRepository) FindOrder(ctx context.Context, userID, courseID string) (dest.Order, error) {
	var o dest.Order
	err := repo.get(ctx, &o, `
		SELECT `+orderColumns+` FROM "Order" WHERE "userId" = $1 AND "courseId" = $2
		ORDER BY "createdAt" DESC LIMIT 1`, userID, courseID)
	return o, err
}

func (repo *destRepository) InsertOrder(ctx context.Context, o dest.Order) error {
	return repo.insert(ctx, `
		INSERT INTO "Order" (`+orderColumns+`)
		VALUES (:id, :orderNumber, :userId, :courseId, :studentId, :status, :originalPriceUSD,
			:originalPriceUYU, :discountPercent, :discountAmount, :finalAmount, :currency, :paymentMethod,
			:createdAt, :updatedAt, :paidAt, :cancelledAt, :refundedAt)`, o)
}

func (repo *destRepository) UpdateOrderStatus(ctx context.Context, o dest.Order) error {
	return repo.update(ctx, `
		UPDATE "Order" SET "status" = :status, "createdAt" = :createdAt, "updatedAt" = :updatedAt,
			"paidAt" = :paidAt, "cancelledAt" = :cancelledAt, "refundedAt" = :refundedAt
		WHERE "id" = :id`, o)
}

func (repo *destRepository) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM "Order" WHERE "orderNumber" = $1)`
	if err := repo.exec.GetContext(ctx, &exists, q, number); err != nil {
		return false, errors.Wrap(err, "checking order number")
	}
	return exists, nil
}

func (repo *destRepository) CountOrderNumbersWithPrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM "Order" WHERE starts_with("orderNumber", $1)`
	if err := repo.exec.GetContext(ctx, &n, q, prefix); err != nil {
		return 0, errors.Wrap(err, "counting order numbers")
	}
	return n, nil
}

// checkout data

func (repo *destRepository) FindBankAccount(ctx context.Context, bankName, accountNumber string) (dest.BankAccount, error) {
	var b dest.BankAccount
	err := repo.get(ctx, &b, `
		SELECT "id", "bankName", "accountHolder", "accountType", "accountNumber", "currency", "displayOrder",
			"isActive", "notes", "createdAt", "updatedAt"
		FROM "BankAccount" WHERE "bankName" = $1 AND "accountNumber" = $2`, bankName, accountNumber)
	return b, err
}

func (repo *destRepository) InsertBankAccount(ctx context.Context, b dest.BankAccount) error {
	return repo.insert(ctx, `
		INSERT INTO "BankAccount" ("id", "bankName", "accountHolder", "accountType", "accountNumber", "currency",
			"displayOrder", "isActive", "notes", "createdAt", "updatedAt")
		VALUES (:id, :bankName, :accountHolder, :accountType, :accountNumber, :currency,
			:displayOrder, :isActive, :notes, :createdAt, :updatedAt)`, b)
}

func (repo *destRepository) MaxBankAccountDisplayOrder(ctx context.Context) (int, error) {
	var n int
	if err := repo.exec.GetContext(ctx, &n, `SELECT COALESCE(MAX("displayOrder"), 0) FROM "BankAccount"`); err != nil {
		return 0, errors.Wrap(err, "selecting display order")
	}
	return n, nil
}

func (repo *destRepository) FindCouponByCode(ctx context.Context, code string) (dest.Coupon, error) {
	var c dest.Coupon
	err := repo.get(ctx, &c, `
		SELECT "id", "code", "discountPercent", "maxUses", "currentUses", "restrictedToEmail",
			"restrictedToCourseId", "validFrom", "expiresAt", "isActive", "description", "createdAt", "updatedAt"
		FROM "Coupon" WHERE upper("code") = upper($1)`, code)
	return c, err
}

func (repo *destRepository) InsertCoupon(ctx context.Context, c dest.Coupon) error {
	return repo.insert(ctx, `
		INSERT INTO "Coupon" ("id", "code", "discountPercent", "maxUses", "currentUses", "restrictedToEmail",
			"restrictedToCourseId", "validFrom", "expiresAt", "isActive", "description", "createdAt", "updatedAt")
		VALUES (:id, :code, :discountPercent, :maxUses, :currentUses, :restrictedToEmail,
			:restrictedToCourseId, :validFrom, :expiresAt, :isActive, :description, :createdAt, :updatedAt)`, c)
}

// UpdateCouponUses never lowers the stored count.
func (repo *destRepository) UpdateCouponUses(ctx context.Context, id string, uses int, updatedAt time.Time) error {
	q := `UPDATE "Coupon" SET "currentUses" = GREATEST("currentUses", $2), "updatedAt" = $3 WHERE "id" = $1`
	res, err := repo.exec.ExecContext(ctx, q, id, uses, updatedAt)
	if err != nil {
		return database.MapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// enrolled counts

func (repo *destRepository) ResetEnrolledCounts(ctx context.Context) (int, error) {
	res, err := repo.exec.ExecContext(ctx, `UPDATE "Course" SET "enrolledCount" = 0`)
	if err != nil {
		return 0, errors.Wrap(err, "resetting enrolled counts")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading affected rows")
	}
	return int(n), nil
}

func (repo *destRepository) ConfirmedEnrollmentCounts(ctx context.Context) ([]dest.CourseCount, error) {
	rows := make([]dest.CourseCount, 0)
	q := `
		SELECT "courseId", COUNT(*) AS "count" FROM "Enrollment"
		WHERE "status" = $1 GROUP BY "courseId" ORDER BY "courseId"`
	if err := repo.exec.SelectContext(ctx, &rows, q, status.EnrollmentConfirmed); err != nil {
		return nil, errors.Wrap(err, "counting confirmed enrollments")
	}
	return rows, nil
}

func (repo *destRepository) SetEnrolledCount(ctx context.Context, courseID string, count int) error {
	_, err := repo.exec.ExecContext(ctx, `UPDATE "Course" SET "enrolledCount" = $2 WHERE "id" = $1`, courseID, count)
	return errors.Wrap(err, "setting enrolled count")
}

func (repo *destRepository) InTx(ctx context.Context, fn func(dest.CountRepository) error) error {
	if repo.db == nil {
		return fn(repo)
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&destRepository{exec: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
