package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		path string
		want Classification
	}{
		{"/dashboard", Protected},
		{"/dashboard/", Protected},
		{"/dashboard/settings", Protected},
		{"/onboarding", Protected},
		{"/onboarding/step-2", Protected},
		{"/login", AuthOnly},
		{"/signup", AuthOnly},
		{"/login/", Unrestricted},
		{"/Login", Unrestricted},
		{"/Dashboard", Unrestricted},
		{"/", Unrestricted},
		{"/pricing", Unrestricted},
		{"/auth/callback", Unrestricted},
		{"", Unrestricted},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.path))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	require.NoError(t, err)

	for _, p := range []string{"/dashboard/x", "/login", "/about"} {
		assert.Equal(t, c.Classify(p), c.Classify(p))
	}
}

func TestClassify_ProtectedCheckedFirst(t *testing.T) {
	// Overlap is rejected at construction; build one by hand to prove the
	// evaluation order anyway.
	c := &Classifier{protected: []string{"/app"}, authOnly: []string{"/app"}}
	assert.Equal(t, Protected, c.Classify("/app"))
}

func TestNewClassifier_RejectsOverlap(t *testing.T) {
	rules := DefaultRules()
	rules.AuthOnlyPaths = []string{"/login", "/dashboard/login"}

	_, err := NewClassifier(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dashboard/login")
}

func TestNewClassifier_RejectsRelativeRules(t *testing.T) {
	rules := DefaultRules()
	rules.ProtectedPrefixes = []string{"dashboard"}

	_, err := NewClassifier(rules)
	require.Error(t, err)
}

func TestNewClassifier_TrimsEnvWhitespace(t *testing.T) {
	rules := DefaultRules()
	rules.ProtectedPrefixes = []string{" /dashboard", "", "/onboarding "}

	c, err := NewClassifier(rules)
	require.NoError(t, err)
	assert.Equal(t, Protected, c.Classify("/onboarding"))
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "protected", Protected.String())
	assert.Equal(t, "auth_only", AuthOnly.String())
	assert.Equal(t, "unrestricted", Unrestricted.String())
}
