package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reports(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("GPO report %d", i+1)
	}
	return out
}

func TestPlanPartitionsInOrder(t *testing.T) {
	for _, size := range []int{1, 2, 3, 7, 10} {
		for n := 2; n <= 31; n++ {
			docs := reports(n)
			batches, err := Plan(Request{ComparisonGPOs: docs}, Limits{MaxBatchSize: size})
			require.NoError(t, err)

			want := 1
			if n > size {
				want = (n + size - 1) / size
			}
			require.Len(t, batches, want, "n=%d size=%d", n, size)

			var joined []string
			for i, b := range batches {
				assert.Equal(t, i+1, b.Index)
				assert.Equal(t, want, b.Total)
				if want > 1 {
					assert.LessOrEqual(t, len(b.GPOs), size)
				}
				assert.Empty(t, b.BaseGPO)
				joined = append(joined, b.GPOs...)
			}
			assert.Equal(t, docs, joined, "n=%d size=%d", n, size)
		}
	}
}

func TestPlanTwentyFiveIntoTenTenFive(t *testing.T) {
	batches, err := Plan(Request{ComparisonGPOs: reports(25)}, Limits{MaxBatchSize: 10})
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].GPOs, 10)
	assert.Len(t, batches[1].GPOs, 10)
	assert.Len(t, batches[2].GPOs, 5)
}

func TestPlanPropagatesBase(t *testing.T) {
	base := "BASE GPO report"
	batches, err := Plan(Request{BaseGPO: base, ComparisonGPOs: reports(15)}, Limits{MaxBatchSize: 10})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	for _, b := range batches {
		assert.Equal(t, base, b.BaseGPO)
		assert.Equal(t, base, b.Documents()[0])
		assert.Len(t, b.Documents(), len(b.GPOs)+1)
	}
}

func TestPlanBatchesDoNotAliasInput(t *testing.T) {
	docs := reports(4)
	batches, err := Plan(Request{ComparisonGPOs: docs}, Limits{MaxBatchSize: 2})
	require.NoError(t, err)
	_ = append(batches[0].GPOs, "intruder")
	assert.Equal(t, "GPO report 3", docs[2])
}

func TestPlanRequestOverridesBatchSize(t *testing.T) {
	batches, err := Plan(Request{ComparisonGPOs: reports(6), MaxBatchSize: 2}, Limits{MaxBatchSize: 10})
	require.NoError(t, err)
	assert.Len(t, batches, 3)
}

func TestPlanDefaultsBatchSize(t *testing.T) {
	batches, err := Plan(Request{ComparisonGPOs: reports(11)}, Limits{})
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		lim  Limits
		ok   bool
	}{
		{"single comparison", Request{ComparisonGPOs: []string{"a"}}, Limits{}, false},
		{"base plus one", Request{BaseGPO: "base", ComparisonGPOs: []string{"a"}}, Limits{}, true},
		{"base alone", Request{BaseGPO: "base"}, Limits{}, false},
		{"two comparisons", Request{ComparisonGPOs: []string{"a", "b"}}, Limits{}, true},
		{"blank comparison", Request{ComparisonGPOs: []string{"a", " \n\t"}}, Limits{}, false},
		{"blank base", Request{BaseGPO: "   ", ComparisonGPOs: []string{"a", "b"}}, Limits{}, false},
		{"empty", Request{}, Limits{}, false},
		{"over budget", Request{ComparisonGPOs: []string{strings.Repeat("x", 60), strings.Repeat("y", 50)}}, Limits{MaxTotalBytes: 100}, false},
		{"at budget", Request{ComparisonGPOs: []string{strings.Repeat("x", 50), strings.Repeat("y", 50)}}, Limits{MaxTotalBytes: 100}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(c.req, c.lim)
			if c.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
