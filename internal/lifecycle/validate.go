package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/store"
)

// Buildings older than this are assumed to be data-entry mistakes.
const minConstructionYear = 1800

// SubmissionInput is the typed boundary for creation and full-update
// requests. Numeric and boolean fields arrive as text from form posts and
// are coerced exactly once, here, with a defined failure for unparseable
// input.
type SubmissionInput struct {
	BuildingType     string
	BuildingName     string
	Address          string
	OwnerName        string
	Contact          string
	Floors           string
	MaxOccupancy     string
	ConstructionYear string
	Checklist        map[string]map[string]string
}

// Parse validates the submission and coerces it into the stored shape.
// All rejected fields are reported together as a ValidationErrors.
func (in SubmissionInput) Parse(now time.Time) (model.Subject, model.Checklist, error) {
	var errs store.ValidationErrors

	required := []struct {
		field string
		value string
	}{
		{"buildingType", in.BuildingType},
		{"buildingName", in.BuildingName},
		{"address", in.Address},
		{"ownerName", in.OwnerName},
		{"contact", in.Contact},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &store.ValidationError{Field: r.field, Message: "is required"})
		}
	}

	floors, err := parseIntField("floors", in.Floors, &errs)
	if err == nil && floors < 1 {
		errs = append(errs, &store.ValidationError{Field: "floors", Message: "must be at least 1"})
	}

	var maxOccupancy int
	if strings.TrimSpace(in.MaxOccupancy) != "" {
		maxOccupancy, err = parseIntField("maxOccupancy", in.MaxOccupancy, &errs)
		if err == nil && maxOccupancy < 0 {
			errs = append(errs, &store.ValidationError{Field: "maxOccupancy", Message: "must not be negative"})
		}
	}

	year, err := parseIntField("constructionYear", in.ConstructionYear, &errs)
	if err == nil {
		if year > now.Year() {
			errs = append(errs, &store.ValidationError{Field: "constructionYear", Message: fmt.Sprintf("must not be later than %d", now.Year())})
		} else if year < minConstructionYear {
			errs = append(errs, &store.ValidationError{Field: "constructionYear", Message: fmt.Sprintf("must not be earlier than %d", minConstructionYear)})
		}
	}

	checklist := model.Checklist{}
	for category, items := range in.Checklist {
		parsed := map[string]bool{}
		for item, raw := range items {
			value, err := ParseBool(raw)
			if err != nil {
				errs = append(errs, &store.ValidationError{
					Field:   fmt.Sprintf("checklist.%s.%s", category, item),
					Message: err.Error(),
				})
				continue
			}
			parsed[item] = value
		}
		checklist[category] = parsed
	}

	if len(errs) > 0 {
		return model.Subject{}, nil, errs
	}

	return model.Subject{
		BuildingType:     strings.TrimSpace(in.BuildingType),
		BuildingName:     strings.TrimSpace(in.BuildingName),
		Address:          strings.TrimSpace(in.Address),
		OwnerName:        strings.TrimSpace(in.OwnerName),
		Contact:          strings.TrimSpace(in.Contact),
		Floors:           floors,
		MaxOccupancy:     maxOccupancy,
		ConstructionYear: year,
	}, checklist, nil
}

func parseIntField(field, raw string, errs *store.ValidationErrors) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		err := &store.ValidationError{Field: field, Message: "is required"}
		*errs = append(*errs, err)
		return 0, err
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		verr := &store.ValidationError{Field: field, Message: fmt.Sprintf("invalid number %q", raw)}
		*errs = append(*errs, verr)
		return 0, verr
	}
	return n, nil
}

// ParseBool parses the textual boolean representations form clients send.
// Unlike strconv.ParseBool it accepts checkbox values ("on", "off", "yes",
// "no") and rejects everything else.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
