package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firedesk/records-service/internal/registry/store"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func validInput() SubmissionInput {
	return SubmissionInput{
		BuildingType:     "commercial",
		BuildingName:     "Harbor Tower",
		Address:          "12 Dock Street",
		OwnerName:        "R. Fontaine",
		Contact:          "555-0142",
		Floors:           "8",
		MaxOccupancy:     "400",
		ConstructionYear: "2015",
	}
}

func TestSubmissionParse(t *testing.T) {
	t.Run("valid input coerces", func(t *testing.T) {
		subject, checklist, err := validInput().Parse(testNow)
		require.NoError(t, err)
		require.Equal(t, "Harbor Tower", subject.BuildingName)
		require.Equal(t, 8, subject.Floors)
		require.Equal(t, 400, subject.MaxOccupancy)
		require.Equal(t, 2015, subject.ConstructionYear)
		require.Empty(t, checklist)
	})

	t.Run("missing required fields reported together", func(t *testing.T) {
		in := validInput()
		in.BuildingName = "  "
		in.OwnerName = ""
		in.Floors = ""
		_, _, err := in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.ElementsMatch(t, []string{"buildingName", "ownerName", "floors"}, errs.Fields())
	})

	t.Run("floors below one rejected", func(t *testing.T) {
		in := validInput()
		in.Floors = "0"
		_, _, err := in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Equal(t, []string{"floors"}, errs.Fields())

		in.Floors = "1"
		_, _, err = in.Parse(testNow)
		require.NoError(t, err)
	})

	t.Run("construction year bounds", func(t *testing.T) {
		in := validInput()
		in.ConstructionYear = "2027" // one past testNow's year
		_, _, err := in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Equal(t, []string{"constructionYear"}, errs.Fields())

		in.ConstructionYear = "2026"
		_, _, err = in.Parse(testNow)
		require.NoError(t, err)

		in.ConstructionYear = "1799"
		_, _, err = in.Parse(testNow)
		require.ErrorAs(t, err, &errs)

		in.ConstructionYear = "1800"
		_, _, err = in.Parse(testNow)
		require.NoError(t, err)
	})

	t.Run("max occupancy optional but non-negative", func(t *testing.T) {
		in := validInput()
		in.MaxOccupancy = ""
		subject, _, err := in.Parse(testNow)
		require.NoError(t, err)
		require.Zero(t, subject.MaxOccupancy)

		in.MaxOccupancy = "-1"
		_, _, err = in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Equal(t, []string{"maxOccupancy"}, errs.Fields())
	})

	t.Run("unparseable numbers rejected", func(t *testing.T) {
		in := validInput()
		in.Floors = "eight"
		in.ConstructionYear = "20x5"
		_, _, err := in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.ElementsMatch(t, []string{"floors", "constructionYear"}, errs.Fields())
	})

	t.Run("checklist coerces booleans", func(t *testing.T) {
		in := validInput()
		in.Checklist = map[string]map[string]string{
			"fireSafety": {"extinguishers": "on", "alarms": "false"},
		}
		_, checklist, err := in.Parse(testNow)
		require.NoError(t, err)
		require.True(t, checklist["fireSafety"]["extinguishers"])
		require.False(t, checklist["fireSafety"]["alarms"])
	})

	t.Run("bad checklist value names the item", func(t *testing.T) {
		in := validInput()
		in.Checklist = map[string]map[string]string{
			"fireSafety": {"alarms": "maybe"},
		}
		_, _, err := in.Parse(testNow)
		var errs store.ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Equal(t, []string{"checklist.fireSafety.alarms"}, errs.Fields())
	})
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "TRUE", "1", "yes", "on", " On "} {
		v, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		require.True(t, v, "input %q", in)
	}
	for _, in := range []string{"false", "0", "no", "off", "OFF"} {
		v, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		require.False(t, v, "input %q", in)
	}
	for _, in := range []string{"", "maybe", "2", "si"} {
		_, err := ParseBool(in)
		require.Error(t, err, "input %q", in)
	}
}
