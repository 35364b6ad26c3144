package lifecycle

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

// ContestDraft is unvalidated contest input. Numbers and the deadline arrive
// as text so that parsing failures surface as validation errors.
type ContestDraft struct {
	Name            string
	Description     string
	TaskInstruction string
	Image           string
	Type            string
	Price           string
	PrizeMoney      string
	Deadline        string
}

type contestFields struct {
	name            string
	description     string
	taskInstruction string
	image           string
	contestType     models.ContestType
	price           decimal.Decimal
	prizeMoney      decimal.Decimal
	deadline        time.Time
}

// parse validates d against now and returns the typed fields.
func (d ContestDraft) parse(now time.Time) (contestFields, error) {
	var f contestFields

	required := []struct {
		field string
		value string
		dst   *string
	}{
		{"name", d.Name, &f.name},
		{"description", d.Description, &f.description},
		{"taskInstruction", d.TaskInstruction, &f.taskInstruction},
		{"image", d.Image, &f.image},
	}
	for _, r := range required {
		v := strings.TrimSpace(r.value)
		if v == "" {
			return f, errs.NewValidationError(r.field, "is required")
		}
		*r.dst = v
	}

	if !isWebURL(f.image) {
		return f, errs.NewValidationError("image", "must be an http(s) URL")
	}

	contestType, ok := models.ParseContestType(d.Type)
	if !ok {
		return f, errs.NewValidationError("type", "must be a known contest type")
	}
	f.contestType = contestType

	var err error
	if f.price, err = parseMoney("price", d.Price); err != nil {
		return f, err
	}
	if f.prizeMoney, err = parseMoney("prizeMoney", d.PrizeMoney); err != nil {
		return f, err
	}

	deadline := strings.TrimSpace(d.Deadline)
	if deadline == "" {
		return f, errs.NewValidationError("deadline", "is required")
	}
	f.deadline, err = time.Parse(time.RFC3339Nano, deadline)
	if err != nil {
		return f, errs.NewValidationError("deadline", "must be an RFC 3339 timestamp")
	}
	if !f.deadline.After(now) {
		return f, errs.NewValidationError("deadline", "must be in the future")
	}
	f.deadline = f.deadline.UTC()

	return f, nil
}

// maxMoney is the first amount a numeric(12,2) column cannot hold.
var maxMoney = decimal.New(1, 10)

func parseMoney(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errs.NewValidationError(field, "is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errs.NewValidationError(field, "must be a number")
	}
	if amount.IsNegative() {
		return decimal.Zero, errs.NewValidationError(field, "must not be negative")
	}
	if amount.GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, errs.NewValidationError(field, "must be below "+maxMoney.String())
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return decimal.Zero, errs.NewValidationError(field, "must have at most 2 decimal places")
	}
	return amount.Round(2), nil
}

// withDefaults fills every empty field of d from c, so an edit only has to
// carry what changes.
func (d ContestDraft) withDefaults(c models.Contest) ContestDraft {
	fill := func(v *string, current string) {
		if strings.TrimSpace(*v) == "" {
			*v = current
		}
	}
	fill(&d.Name, c.Name)
	fill(&d.Description, c.Description)
	fill(&d.TaskInstruction, c.TaskInstruction)
	fill(&d.Image, c.Image)
	fill(&d.Type, string(c.Type))
	fill(&d.Price, c.Price.String())
	fill(&d.PrizeMoney, c.PrizeMoney.String())
	fill(&d.Deadline, c.Deadline.Format(time.RFC3339Nano))
	return d
}

func (f contestFields) apply(c *models.Contest) {
	c.Name = f.name
	c.Description = f.description
	c.TaskInstruction = f.taskInstruction
	c.Image = f.image
	c.Type = f.contestType
	c.Price = f.price
	c.PrizeMoney = f.prizeMoney
	c.Deadline = f.deadline
}

func isWebURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
