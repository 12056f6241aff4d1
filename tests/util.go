package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/source"
	logsvc "github.com/tintaacademy/migrator/services/logger"
	"github.com/tintaacademy/migrator/storage/database"
)

// Base is the reference instant fixtures are built around.
var Base = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// At returns Base shifted by d.
func At(d time.Duration) time.Time {
	return Base.Add(d)
}

// NewLogger returns a logger whose entries can be asserted on.
func NewLogger() (core.Logger, *observer.ObservedLogs) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	return logsvc.NewZapLogger(zap.New(zcore)), logs
}

// NopLogger discards everything.
func NopLogger() core.Logger {
	return logsvc.NewZapLogger(zap.NewNop())
}

func SourceCourse(id, slug string, createdAt time.Time) source.Course {
	return source.Course{
		ID:            id,
		Slug:          slug,
		Title:         "Curso " + slug,
		Type:          "WSET_NIVEL_2",
		Status:        "Inscribiendo",
		TotalDuration: 90,
		Location:      null.StringFrom("Online"),
		PriceUSD:      null.Float64From(400),
		PriceUYU:      null.Float64From(16000),
		CreatedAt:     createdAt,
	}
}

func SourceStudent(id, email string, createdAt time.Time) source.Student {
	return source.Student{
		ID:        id,
		Email:     email,
		FirstName: null.StringFrom("Ana"),
		LastName:  null.StringFrom("Pérez"),
		CreatedAt: createdAt,
	}
}

func SourceOrder(id, studentID, courseID, status string, amount float64, createdAt time.Time) source.Order {
	return source.Order{
		ID:            id,
		StudentID:     studentID,
		CourseID:      courseID,
		Status:        status,
		Amount:        amount,
		Currency:      null.StringFrom("USD"),
		PaymentMethod: null.StringFrom("mercadopago"),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// PrepareDestDB connects to TEST_DATABASE_URL, migrates the v4 schema and empties it after the test.
// The test is skipped when the variable is unset.
func PrepareDestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := open(t, "TEST_DATABASE_URL")
	if err := database.Migrate(context.Background(), db.DB, "up"); err != nil {
		t.Fatalf("PrepareDestDB() failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE "Coupon", "BankAccount", "Order", "Enrollment", "Student", "User", "Course" CASCADE`)
		_ = db.Close()
	})
	return db
}

const sourceSchema = `
CREATE TABLE IF NOT EXISTS "Course" (
    "id" TEXT PRIMARY KEY, "slug" TEXT NOT NULL, "title" TEXT NOT NULL, "type" TEXT NOT NULL,
    "status" TEXT NOT NULL, "totalDuration" INTEGER, "classDates" TIMESTAMP(3)[], "examDate" TIMESTAMP(3),
    "location" TEXT, "priceUSD" DOUBLE PRECISION, "priceUYU" DOUBLE PRECISION, "educatorId" TEXT,
    "createdAt" TIMESTAMP(3) NOT NULL
);
CREATE TABLE IF NOT EXISTS "Student" (
    "id" TEXT PRIMARY KEY, "email" TEXT NOT NULL, "firstName" TEXT, "lastName" TEXT, "phone" TEXT,
    "createdAt" TIMESTAMP(3) NOT NULL
);
CREATE TABLE IF NOT EXISTS "Order" (
    "id" TEXT PRIMARY KEY, "studentId" TEXT NOT NULL, "courseId" TEXT NOT NULL, "status" TEXT NOT NULL,
    "amount" DOUBLE PRECISION NOT NULL, "currency" TEXT, "paymentMethod" TEXT, "couponId" TEXT,
    "bankDataId" TEXT, "createdAt" TIMESTAMP(3) NOT NULL, "updatedAt" TIMESTAMP(3)
);`

// PrepareSourceDB connects to TEST_V3_DATABASE_URL and creates the v3 tables without the optional
// BankData and Coupon tables. The test is skipped when the variable is unset.
func PrepareSourceDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := open(t, "TEST_V3_DATABASE_URL")
	if _, err := db.Exec(sourceSchema); err != nil {
		t.Fatalf("PrepareSourceDB() failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE "Order", "Student", "Course"`)
		_ = db.Close()
	})
	return db
}

func open(t *testing.T, env string) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s not set", env)
	}
	db, err := database.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("opening %s: %v", env, err)
	}
	return db
}
