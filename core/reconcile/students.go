package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/source"
)

// Students creates a User and its Student profile for each v3 student whose email is new. A user
// that exists without a profile gets one, and that counts as an update.
func (e *Engine) Students(ctx context.Context) (Report, error) {
	r := NewReport(KindStudent)
	rows, err := e.src.Students(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source students")
	}
	oldestFirst(rows, func(s source.Student) time.Time { return s.CreatedAt })

	for _, src := range rows {
		email := core.NormalizeEmail(src.Email)
		if email == "" {
			e.skip(&r, ReasonMissingEmail, src.ID)
			continue
		}

		usr, err := e.dst.FindUserByEmail(ctx, email)
		userFound, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}

		if !userFound {
			if err := e.createStudent(ctx, src, email); err != nil {
				e.fail(&r, src.ID, err)
				continue
			}
			r.Created++
			continue
		}

		_, err = e.dst.FindStudentByUserID(ctx, usr.ID)
		profileFound, err := probe(err)
		switch {
		case err != nil:
			e.fail(&r, src.ID, err)
		case profileFound:
			e.skip(&r, ReasonAlreadyMigrated, src.ID, "email", email)
		default:
			if err := e.insertProfile(ctx, src, usr.ID); err != nil {
				e.fail(&r, src.ID, err)
				continue
			}
			r.Updated++
		}
	}

	r.Log(e.log)
	return r, nil
}

// createStudent inserts the User, then its Student profile, without a transaction. A failed profile
// insert leaves a User with no profile; the next run finds it by email and adds the profile, counting
// the record as updated.
func (e *Engine) createStudent(ctx context.Context, src source.Student, email string) error {
	usr := dest.User{
		ID:        newIDFunc(),
		Email:     email,
		FirstName: cleanNull(src.FirstName),
		LastName:  cleanNull(src.LastName),
		Role:      dest.RoleStudent,
		CreatedAt: core.Timestamp(src.CreatedAt),
		UpdatedAt: e.now(),
	}
	if err := e.write(usr, func() error { return e.dst.InsertUser(ctx, usr) }); err != nil {
		return errors.Wrapf(err, "inserting user %q", email)
	}
	return e.insertProfile(ctx, src, usr.ID)
}

func (e *Engine) insertProfile(ctx context.Context, src source.Student, userID string) error {
	st := dest.Student{
		ID:        newIDFunc(),
		UserID:    userID,
		Phone:     cleanNull(src.Phone),
		CreatedAt: core.Timestamp(src.CreatedAt),
		UpdatedAt: e.now(),
	}
	if err := e.write(st, func() error { return e.dst.InsertStudent(ctx, st) }); err != nil {
		return errors.Wrap(err, "inserting student profile")
	}
	return nil
}

// cleanNull trims a nullable string; blank becomes NULL.
func cleanNull(s null.String) null.String {
	v := core.CleanString(s.String)
	return null.NewString(v, s.Valid && v != "")
}
