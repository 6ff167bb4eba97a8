package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetTracksUpdates(t *testing.T) {
	s := NewSet()
	s.CommitHeight.Update(42)
	s.ProposeCount.Inc(3)

	require.EqualValues(t, 42, s.CommitHeight.Value())
	require.EqualValues(t, 3, s.ProposeCount.Count())
	require.Contains(t, s.JSONString(), "commit_height")
}

func TestTwoSetsDoNotShareInstruments(t *testing.T) {
	a, b := NewSet(), NewSet()
	a.ProposeCount.Inc(5)
	require.EqualValues(t, 0, b.ProposeCount.Count())
}
