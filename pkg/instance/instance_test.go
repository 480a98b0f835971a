package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("FARMLINK_INSTANCE_ID", " api-7 ")
	require.Equal(t, "api-7", ID())
}

func TestIDFallsBackToHost(t *testing.T) {
	t.Setenv("FARMLINK_INSTANCE_ID", "")
	require.NotEmpty(t, ID())
}
