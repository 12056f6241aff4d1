package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/core/status"
)

// Modalities
const (
	ModalityOnline     = "online"
	ModalityPresencial = "presencial"
)

// DurationTBD is used when neither a total duration nor class dates are known.
const DurationTBD = "A definir"

var onlineHints = []string{"online", "zoom", "virtual", "meet"}

// Normalizer maps v3 rows to v4 rows. Ids and write timestamps are left to the caller.
type Normalizer struct {
	tr *status.Translator
}

func New(tr *status.Translator) *Normalizer {
	return &Normalizer{tr: tr}
}

func (n *Normalizer) Course(src source.Course) dest.Course {
	kind := n.tr.CourseKind(src.Type)
	classes := src.ClassTimes()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Before(classes[j]) })

	c := dest.Course{
		Slug:      core.CleanString(src.Slug),
		Title:     core.CleanString(src.Title),
		Type:      kind.Type,
		Status:    n.tr.CourseStatus(src.Status),
		Modality:  Modality(src.Location.String),
		Duration:  FormatDuration(src.TotalDuration, len(classes)),
		PriceUSD:  src.PriceUSD,
		PriceUYU:  src.PriceUYU,
		CreatedAt: src.CreatedAt.UTC(),
	}
	if kind.Level > 0 {
		c.WsetLevel = null.IntFrom(kind.Level)
	}
	if len(classes) > 0 {
		c.StartDate = null.TimeFrom(classes[0])
		c.EndDate = null.TimeFrom(classes[len(classes)-1])
	}
	if src.ExamDate.Valid {
		c.EndDate = null.TimeFrom(src.ExamDate.Time.UTC())
	}
	return c
}

// FormatDuration renders minutes as Spanish text ("1 hora 30 minutos"); with no minutes it falls back to
// the class count, then to DurationTBD.
func FormatDuration(minutes, classCount int) string {
	if minutes > 0 {
		h, m := minutes/60, minutes%60
		parts := make([]string, 0, 2)
		if h > 0 {
			parts = append(parts, plural(h, "hora", "horas"))
		}
		if m > 0 {
			parts = append(parts, plural(m, "minuto", "minutos"))
		}
		return strings.Join(parts, " ")
	}
	if classCount > 0 {
		return plural(classCount, "clase", "clases")
	}
	return DurationTBD
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func Modality(location string) string {
	loc := fold(location)
	for _, hint := range onlineHints {
		if strings.Contains(loc, hint) {
			return ModalityOnline
		}
	}
	return ModalityPresencial
}

func (n *Normalizer) BankAccount(src source.BankData) dest.BankAccount {
	f := ParseBankAccount(src.Name, src.Info)
	return dest.BankAccount{
		BankName:      f.BankName,
		AccountHolder: f.AccountHolder,
		AccountType:   f.AccountType,
		AccountNumber: f.AccountNumber,
		Currency:      f.Currency,
		IsActive:      true,
		Notes:         null.NewString(strings.TrimSpace(src.Info), strings.TrimSpace(src.Info) != ""),
		CreatedAt:     src.CreatedAt.UTC(),
	}
}

// NormalizeCouponCode is the natural-key form of a coupon code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}

// Coupon maps a v3 coupon; restrictedCourseID is the already-resolved v4 course id, if any.
func (n *Normalizer) Coupon(src source.Coupon, restrictedCourseID null.String) dest.Coupon {
	code := NormalizeCouponCode(src.Code)
	c := dest.Coupon{
		Code:                 code,
		DiscountPercent:      src.Discount,
		MaxUses:              src.MaxUses,
		CurrentUses:          src.Uses,
		RestrictedToCourseID: restrictedCourseID,
		ValidFrom:            src.CreatedAt.UTC(),
		IsActive:             true,
		Description:          null.StringFrom(fmt.Sprintf("Cupón %s (%s%% de descuento)", code, formatPercent(src.Discount))),
		CreatedAt:            src.CreatedAt.UTC(),
	}
	if email := core.NormalizeEmail(src.Email.String); src.Email.Valid && email != "" {
		c.RestrictedToEmail = null.StringFrom(email)
	}
	if src.ExpiresAt.Valid {
		c.ExpiresAt = null.TimeFrom(src.ExpiresAt.Time.UTC())
	}
	return c
}

func formatPercent(p float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", p), "0"), ".")
}
