package dest

import (
	"context"
	"time"
)

// Find* probes return core.ErrNotFound when no row shares the natural key.
// Insert* return core.ErrDuplicate when a unique natural key is already taken.
type (
	CourseRepository interface {
		CourseKeys(ctx context.Context) ([]KeyRow, error)
		FindCourseBySlug(ctx context.Context, slug string) (Course, error)
		InsertCourse(ctx context.Context, c Course) error
	}

	UserRepository interface {
		StudentKeys(ctx context.Context) ([]StudentKey, error)
		FindUserByEmail(ctx context.Context, email string) (User, error)
		InsertUser(ctx context.Context, u User) error
		FindStudentByUserID(ctx context.Context, userID string) (Student, error)
		InsertStudent(ctx context.Context, s Student) error
	}

	EnrollmentRepository interface {
		FindEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		InsertEnrollment(ctx context.Context, e Enrollment) error
		// UpdateEnrollmentStatus rewrites status, enrolledAt and updatedAt only.
		UpdateEnrollmentStatus(ctx context.Context, e Enrollment) error
	}

	OrderRepository interface {
		FindOrder(ctx context.Context, userID, courseID string) (Order, error)
		InsertOrder(ctx context.Context, o Order) error
		// UpdateOrderStatus rewrites status, createdAt, updatedAt, paidAt, cancelledAt and refundedAt only.
		UpdateOrderStatus(ctx context.Context, o Order) error
		OrderNumberExists(ctx context.Context, number string) (bool, error)
		CountOrderNumbersWithPrefix(ctx context.Context, prefix string) (int, error)
	}

	CheckoutRepository interface {
		FindBankAccount(ctx context.Context, bankName, accountNumber string) (BankAccount, error)
		InsertBankAccount(ctx context.Context, b BankAccount) error
		MaxBankAccountDisplayOrder(ctx context.Context) (int, error)
		FindCouponByCode(ctx context.Context, code string) (Coupon, error)
		InsertCoupon(ctx context.Context, c Coupon) error
		UpdateCouponUses(ctx context.Context, id string, uses int, updatedAt time.Time) error
	}

	CountRepository interface {
		// ResetEnrolledCounts sets every course's enrolledCount to 0 and returns how many courses exist.
		ResetEnrolledCounts(ctx context.Context) (int, error)
		ConfirmedEnrollmentCounts(ctx context.Context) ([]CourseCount, error)
		SetEnrolledCount(ctx context.Context, courseID string, count int) error
		// InTx runs fn against a CountRepository bound to a single transaction.
		InTx(ctx context.Context, fn func(CountRepository) error) error
	}

	Repository interface {
		CourseRepository
		UserRepository
		EnrollmentRepository
		OrderRepository
		CheckoutRepository
		CountRepository
	}
)
