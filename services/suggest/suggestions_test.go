package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForRole(t *testing.T) {
	t.Run("known role gets its own set", func(t *testing.T) {
		got := ForRole("finance_employee")
		assert.NotEmpty(t, got)
		assert.Contains(t, got[0], "financial")
	})

	t.Run("unknown role falls back to the employee set", func(t *testing.T) {
		assert.Equal(t, ForRole("employee"), ForRole("contractor"))
	})

	t.Run("callers cannot mutate the shared table", func(t *testing.T) {
		got := ForRole("employee")
		got[0] = "mutated"
		assert.NotEqual(t, "mutated", ForRole("employee")[0])
	})
}
