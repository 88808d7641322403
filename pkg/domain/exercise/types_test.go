package exercise

import (
	"testing"
	"time"
)

func TestMergedPointTime_RoundsLikeTheMergeKey(t *testing.T) {
	cases := []struct {
		startTime float64
		want      time.Time
	}{
		{1.4, time.Unix(1, 0).UTC()},
		{1.6, time.Unix(2, 0).UTC()},
		{2.5, time.Unix(3, 0).UTC()},
		{1562630400, time.Date(2019, 7, 9, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		p := MergedPoint{StartTime: c.startTime}
		if got := p.Time(); !got.Equal(c.want) {
			t.Errorf("Time() for %v = %v, want %v", c.startTime, got, c.want)
		}
	}
}
