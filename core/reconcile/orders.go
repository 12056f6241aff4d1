package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/normalize"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/core/status"
)

// orderContext holds the v3 lookups an order needs for pricing and currency.
type orderContext struct {
	courses   map[string]source.Course
	coupons   map[string]source.Coupon
	bankNames map[string]string
}

func (e *Engine) loadOrderContext(ctx context.Context) (orderContext, error) {
	oc := orderContext{
		courses:   make(map[string]source.Course),
		coupons:   make(map[string]source.Coupon),
		bankNames: make(map[string]string),
	}
	courses, err := e.src.Courses(ctx)
	if err != nil {
		return oc, errors.Wrap(err, "reading source courses")
	}
	for _, c := range courses {
		oc.courses[c.ID] = c
	}

	coupons, _, err := e.src.Coupons(ctx)
	if err != nil {
		return oc, errors.Wrap(err, "reading source coupons")
	}
	for _, c := range coupons {
		oc.coupons[c.ID] = c
	}

	banks, _, err := e.src.BankData(ctx)
	if err != nil {
		return oc, errors.Wrap(err, "reading source bank data")
	}
	for _, b := range banks {
		oc.bankNames[b.ID] = b.Name
	}
	return oc, nil
}

// Orders migrates v3 orders keyed by (user, course). New orders get a fresh order number; an existing
// order only has its status fields rewritten, and only when the incoming status supersedes it.
func (e *Engine) Orders(ctx context.Context, courses *identity.Map, students *identity.StudentMap) (Report, error) {
	r := NewReport(KindOrder)
	rows, err := e.src.Orders(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source orders")
	}
	oc, err := e.loadOrderContext(ctx)
	if err != nil {
		return r, err
	}
	oldestFirst(rows, func(o source.Order) time.Time { return o.CreatedAt })

	for _, src := range rows {
		courseID, ok := courses.Lookup(src.CourseID)
		if !ok {
			e.skip(&r, ReasonCourseUnresolved, src.ID, "course_id", src.CourseID)
			continue
		}
		ref, ok := students.Lookup(src.StudentID)
		if !ok {
			e.skip(&r, ReasonStudentUnresolved, src.ID, "student_id", src.StudentID)
			continue
		}

		incoming := e.tr.OrderStatus(src.Status)
		at := core.Timestamp(src.CreatedAt)

		existing, err := e.dst.FindOrder(ctx, ref.UserID, courseID)
		found, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}

		if !found {
			o, err := e.buildOrder(ctx, src, oc, courseID, ref)
			if err != nil {
				e.fail(&r, src.ID, err)
				continue
			}
			if err := e.write(o, func() error { return e.dst.InsertOrder(ctx, o) }); err != nil {
				e.fail(&r, src.ID, errors.Wrapf(err, "inserting order %s", o.OrderNumber))
				continue
			}
			r.Created++
			continue
		}

		if !status.Supersedes(incoming, at, existing.Status, core.Timestamp(existing.CreatedAt)) {
			e.skip(&r, ReasonSuperseded, src.ID, "status", incoming, "existing_status", existing.Status)
			continue
		}

		existing.Status = incoming
		existing.CreatedAt = at
		existing.UpdatedAt = e.now()
		existing.StampStatusTime(statusTime(src))
		if err := e.write(existing, func() error { return e.dst.UpdateOrderStatus(ctx, existing) }); err != nil {
			e.fail(&r, src.ID, errors.Wrapf(err, "updating order %s", existing.OrderNumber))
			continue
		}
		r.Updated++
	}

	r.Log(e.log)
	return r, nil
}

func (e *Engine) buildOrder(ctx context.Context, src source.Order, oc orderContext, courseID string, ref identity.StudentRef) (dest.Order, error) {
	at := core.Timestamp(src.CreatedAt)
	currency := normalize.Currency(src.Currency.String, oc.bankNames[src.BankDataID.String])

	var discount float64
	if coupon, ok := oc.coupons[src.CouponID.String]; ok && src.CouponID.Valid {
		discount = coupon.Discount
	}

	var listPrice null.Float64
	if course, ok := oc.courses[src.CourseID]; ok {
		listPrice = course.PriceUSD
		if currency == normalize.UYU {
			listPrice = course.PriceUYU
		}
	}
	p := normalize.PriceOrder(src.Amount, discount, listPrice)

	number, err := e.orderNumbers.Next(ctx, at)
	if err != nil {
		return dest.Order{}, err
	}

	o := dest.Order{
		ID:              newIDFunc(),
		OrderNumber:     number,
		UserID:          ref.UserID,
		CourseID:        courseID,
		StudentID:       ref.StudentID,
		Status:          e.tr.OrderStatus(src.Status),
		DiscountPercent: p.DiscountPercent,
		DiscountAmount:  p.DiscountAmount,
		FinalAmount:     p.Final,
		Currency:        currency,
		PaymentMethod:   e.tr.PaymentMethod(src.PaymentMethod.String),
		CreatedAt:       at,
		UpdatedAt:       e.now(),
	}
	if currency == normalize.UYU {
		o.OriginalPriceUYU = null.Float64From(p.Original)
	} else {
		o.OriginalPriceUSD = null.Float64From(p.Original)
	}
	o.StampStatusTime(statusTime(src))
	return o, nil
}

// statusTime is when a v3 order reached its status: its last update, else its creation.
func statusTime(o source.Order) time.Time {
	if o.UpdatedAt.IsZero() {
		return core.Timestamp(o.CreatedAt)
	}
	return core.Timestamp(o.UpdatedAt)
}
