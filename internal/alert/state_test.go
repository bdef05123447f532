package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stepAll feeds a synthetic membership sequence and returns the indices that
// fired.
func stepAll(st *TokenState, seq []bool) []int {
	var fired []int
	for i, in := range seq {
		if st.Step(in) {
			fired = append(fired, i)
		}
	}
	return fired
}

func TestStep_FiresOnlyOnEntering(t *testing.T) {
	tests := []struct {
		name  string
		seq   []bool
		fired []int
	}{
		{"never in band", []bool{false, false, false}, nil},
		{"single entry held", []bool{false, true, true, true}, []int{1}},
		{"starts inside", []bool{true, true}, []int{0}},
		{"exit and re-enter", []bool{false, true, false, true}, []int{1, 3}},
		{"budget caps third entry", []bool{true, false, true, false, true, false, true}, []int{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st TokenState
			assert.Equal(t, tt.fired, stepAll(&st, tt.seq))
			assert.LessOrEqual(t, st.AlertsSent, Budget)
		})
	}
}

func TestStep_StopsAfterBudget(t *testing.T) {
	var st TokenState

	assert.True(t, st.Step(true))
	assert.False(t, st.Stopped)
	assert.False(t, st.Step(false))
	assert.True(t, st.Step(true), "second alert is still delivered")
	assert.True(t, st.Stopped)
	assert.Equal(t, 2, st.AlertsSent)

	frozen := st
	assert.False(t, st.Step(false))
	assert.False(t, st.Step(true))
	assert.Equal(t, frozen, st, "stopped state is frozen")
}

func TestStep_BudgetProperty(t *testing.T) {
	// Every membership sequence of length 8.
	for mask := range 1 << 8 {
		seq := make([]bool, 8)
		for i := range seq {
			seq[i] = mask&(1<<i) != 0
		}
		var st TokenState
		fired := stepAll(&st, seq)

		assert.LessOrEqual(t, len(fired), Budget)
		assert.Equal(t, len(fired), st.AlertsSent)
		for _, i := range fired {
			assert.True(t, seq[i])
			if i > 0 {
				assert.False(t, seq[i-1], "fired inside a run of trues at %d for %v", i, seq)
			}
		}
	}
}
