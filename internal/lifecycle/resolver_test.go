package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyIdentifier(t *testing.T) {
	t.Run("object id hex is a primary key", func(t *testing.T) {
		require.Equal(t, KeyPrimary, ClassifyIdentifier("507f1f77bcf86cd799439011"))
		require.Equal(t, KeyPrimary, ClassifyIdentifier("507F1F77BCF86CD799439011"))
	})

	t.Run("canonical uuid is a primary key", func(t *testing.T) {
		require.Equal(t, KeyPrimary, ClassifyIdentifier("9f8b6a1c-22d3-4e55-8a7b-0c1d2e3f4a5b"))
	})

	t.Run("business identifiers", func(t *testing.T) {
		require.Equal(t, KeyBusiness, ClassifyIdentifier("NOC000042"))
		require.Equal(t, KeyBusiness, ClassifyIdentifier("SR-1767225600000-7"))
	})

	t.Run("near misses stay business", func(t *testing.T) {
		// 23 and 25 hex chars
		require.Equal(t, KeyBusiness, ClassifyIdentifier("507f1f77bcf86cd79943901"))
		require.Equal(t, KeyBusiness, ClassifyIdentifier("507f1f77bcf86cd7994390111"))
		// 36 chars but not a uuid
		require.Equal(t, KeyBusiness, ClassifyIdentifier("zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"))
		require.Equal(t, KeyBusiness, ClassifyIdentifier(""))
	})
}
