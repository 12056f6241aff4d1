package identity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/source"
)

// Kinds
const (
	KindCourse  = "course"
	KindStudent = "student"
)

type (
	SourceKeys interface {
		CourseKeys(ctx context.Context) ([]source.KeyRow, error)
		StudentKeys(ctx context.Context) ([]source.KeyRow, error)
	}

	DestKeys interface {
		CourseKeys(ctx context.Context) ([]dest.KeyRow, error)
		StudentKeys(ctx context.Context) ([]dest.StudentKey, error)
	}
)

// Mapper builds identity maps. It only reads.
type Mapper struct {
	src SourceKeys
	dst DestKeys
	log core.Logger
}

func NewMapper(src SourceKeys, dst DestKeys, log core.Logger) *Mapper {
	return &Mapper{src: src, dst: dst, log: log}
}

// Courses maps v3 course ids to v4 course ids by slug.
func (mp *Mapper) Courses(ctx context.Context) (*Map, error) {
	dstRows, err := mp.dst.CourseKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading destination course slugs")
	}
	bySlug := make(map[string]string, len(dstRows))
	for _, r := range dstRows {
		bySlug[core.CleanString(r.Key)] = r.ID
	}

	srcRows, err := mp.src.CourseKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading source course slugs")
	}

	m := NewMap(KindCourse)
	for _, r := range srcRows {
		slug := core.CleanString(r.Key)
		if id, ok := bySlug[slug]; ok && slug != "" {
			m.Set(r.ID, id)
			continue
		}
		m.markUnmatched(slug)
		mp.log.Debug("course slug has no destination match", "source_id", r.ID, "slug", slug)
	}

	mp.log.Info("identity map built", "kind", KindCourse, "matched", m.Len(), "unmatched", len(m.Unmatched()))
	return m, nil
}

// Students maps v3 student ids to v4 users by case-insensitive email. Users without a student
// profile are left out.
func (mp *Mapper) Students(ctx context.Context) (*StudentMap, error) {
	dstRows, err := mp.dst.StudentKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading destination user emails")
	}
	byEmail := make(map[string]dest.StudentKey, len(dstRows))
	for _, r := range dstRows {
		byEmail[core.NormalizeEmail(r.Email)] = r
	}

	srcRows, err := mp.src.StudentKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading source student emails")
	}

	m := NewStudentMap()
	for _, r := range srcRows {
		email := core.NormalizeEmail(r.Key)
		row, ok := byEmail[email]
		if !ok || email == "" || !row.StudentID.Valid {
			m.markUnmatched(email)
			mp.log.Debug("student email has no destination match", "source_id", r.ID, "email", email)
			continue
		}
		m.Set(r.ID, StudentRef{UserID: row.UserID, StudentID: row.StudentID.String})
	}

	mp.log.Info("identity map built", "kind", KindStudent, "matched", m.Len(), "unmatched", len(m.Unmatched()))
	return m, nil
}
