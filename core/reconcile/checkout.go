package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/normalize"
	"github.com/tintaacademy/migrator/core/source"
)

// CheckoutData migrates bank accounts and coupons. Both v3 tables are optional.
func (e *Engine) CheckoutData(ctx context.Context, courses *identity.Map) ([]Report, error) {
	banks, err := e.BankAccounts(ctx)
	if err != nil {
		return []Report{banks}, err
	}
	coupons, err := e.Coupons(ctx, courses)
	return []Report{banks, coupons}, err
}

// BankAccounts inserts accounts keyed by (bankName, accountNumber). New accounts are appended after
// the highest displayOrder already stored.
func (e *Engine) BankAccounts(ctx context.Context) (Report, error) {
	r := NewReport(KindBankAccount)
	rows, found, err := e.src.BankData(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source bank data")
	}
	if !found {
		r.Absent = true
		e.log.Info("optional source table absent", "kind", r.Kind)
		r.Log(e.log)
		return r, nil
	}
	oldestFirst(rows, func(b source.BankData) time.Time { return b.CreatedAt })

	displayOrder, err := e.dst.MaxBankAccountDisplayOrder(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading bank account display order")
	}

	for _, src := range rows {
		acc := e.norm.BankAccount(src)

		_, err := e.dst.FindBankAccount(ctx, acc.BankName, acc.AccountNumber)
		exists, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}
		if exists {
			e.skip(&r, ReasonAlreadyMigrated, src.ID, "bank_name", acc.BankName, "account_number", acc.AccountNumber)
			continue
		}

		acc.ID = newIDFunc()
		acc.DisplayOrder = displayOrder + 1
		acc.CreatedAt = core.Timestamp(src.CreatedAt)
		acc.UpdatedAt = e.now()
		if err := e.write(acc, func() error { return e.dst.InsertBankAccount(ctx, acc) }); err != nil {
			e.fail(&r, src.ID, errors.Wrapf(err, "inserting bank account %q", acc.BankName))
			continue
		}
		displayOrder++
		r.Created++
	}

	r.Log(e.log)
	return r, nil
}

// Coupons inserts coupons keyed by uppercased code. For an existing coupon only the use count moves,
// and only upwards.
func (e *Engine) Coupons(ctx context.Context, courses *identity.Map) (Report, error) {
	r := NewReport(KindCoupon)
	rows, found, err := e.src.Coupons(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source coupons")
	}
	if !found {
		r.Absent = true
		e.log.Info("optional source table absent", "kind", r.Kind)
		r.Log(e.log)
		return r, nil
	}
	oldestFirst(rows, func(c source.Coupon) time.Time { return c.CreatedAt })

	for _, src := range rows {
		code := normalize.NormalizeCouponCode(src.Code)
		if code == "" {
			e.skip(&r, ReasonMissingCode, src.ID)
			continue
		}

		var restricted null.String
		if courseID := core.CleanString(src.CourseID.String); src.CourseID.Valid && courseID != "" {
			destID, ok := courses.Lookup(courseID)
			if !ok {
				e.skip(&r, ReasonCourseUnresolved, src.ID, "code", code, "course_id", courseID)
				continue
			}
			restricted = null.StringFrom(destID)
		}

		existing, err := e.dst.FindCouponByCode(ctx, code)
		exists, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}

		if exists {
			if src.Uses <= existing.CurrentUses {
				e.skip(&r, ReasonAlreadyMigrated, src.ID, "code", code)
				continue
			}
			if err := e.dst.UpdateCouponUses(ctx, existing.ID, src.Uses, e.now()); err != nil {
				e.fail(&r, src.ID, errors.Wrapf(err, "updating coupon %q", code))
				continue
			}
			r.Updated++
			continue
		}

		cp := e.norm.Coupon(src, restricted)
		cp.ID = newIDFunc()
		cp.ValidFrom = core.Timestamp(src.CreatedAt)
		cp.CreatedAt = core.Timestamp(src.CreatedAt)
		cp.UpdatedAt = e.now()
		if cp.ExpiresAt.Valid {
			cp.ExpiresAt = null.TimeFrom(core.Timestamp(cp.ExpiresAt.Time))
			cp.IsActive = cp.ExpiresAt.Time.After(cp.UpdatedAt)
		}
		if err := e.write(cp, func() error { return e.dst.InsertCoupon(ctx, cp) }); err != nil {
			e.fail(&r, src.ID, errors.Wrapf(err, "inserting coupon %q", code))
			continue
		}
		r.Created++
	}

	r.Log(e.log)
	return r, nil
}
