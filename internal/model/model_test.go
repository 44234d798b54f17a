package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Run("canonical values round-trip", func(t *testing.T) {
		for _, status := range Statuses() {
			parsed, ok := ParseStatus(string(status))
			require.True(t, ok)
			require.Equal(t, status, parsed)
		}
	})

	t.Run("case-insensitive", func(t *testing.T) {
		for in, want := range map[string]Status{
			"submitted":    StatusSubmitted,
			"SUBMITTED":    StatusSubmitted,
			"underreview":  StatusUnderReview,
			"UNDERREVIEW":  StatusUnderReview,
			"approved":     StatusApproved,
			"rejected":     StatusRejected,
			"  Approved  ": StatusApproved,
		} {
			parsed, ok := ParseStatus(in)
			require.True(t, ok, "input %q", in)
			require.Equal(t, want, parsed, "input %q", in)
		}
	})

	t.Run("legacy separators", func(t *testing.T) {
		for _, in := range []string{"under review", "under_review", "Under Review", "UNDER_REVIEW"} {
			parsed, ok := ParseStatus(in)
			require.True(t, ok, "input %q", in)
			require.Equal(t, StatusUnderReview, parsed)
		}
	})

	t.Run("non-members rejected", func(t *testing.T) {
		for _, in := range []string{"", "pending", "approvedd", "Submitted2", "done"} {
			_, ok := ParseStatus(in)
			require.False(t, ok, "input %q", in)
		}
	})
}

func TestDisplayClass(t *testing.T) {
	require.Equal(t, "info", StatusSubmitted.DisplayClass())
	require.Equal(t, "warning", StatusUnderReview.DisplayClass())
	require.Equal(t, "success", StatusApproved.DisplayClass())
	require.Equal(t, "danger", StatusRejected.DisplayClass())
	require.Equal(t, "secondary", Status("bogus").DisplayClass())
}

func TestAttachmentSetFilenames(t *testing.T) {
	set := AttachmentSet{
		"buildingPlan":   {"a.pdf"},
		"propertyDoc":    nil,
		"supportingDocs": {"b.pdf", "c.png"},
	}
	require.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.png"}, set.Filenames())
	require.Empty(t, AttachmentSet{}.Filenames())
}
