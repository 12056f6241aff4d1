package source

import "context"

// Repository reads the v3 store. Listing methods return rows ordered by createdAt ascending.
//
// BankData and Coupons are optional tables in older schemas: found is false when the table does
// not exist, and err stays nil.
type Repository interface {
	CourseKeys(ctx context.Context) ([]KeyRow, error)
	StudentKeys(ctx context.Context) ([]KeyRow, error)

	Courses(ctx context.Context) ([]Course, error)
	Students(ctx context.Context) ([]Student, error)
	Orders(ctx context.Context) ([]Order, error)
	BankData(ctx context.Context) (rows []BankData, found bool, err error)
	Coupons(ctx context.Context) (rows []Coupon, found bool, err error)
}
