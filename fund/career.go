package fund

import (
	"github.com/applied-statistics/competitions/params"
)

// Career is a run of independent deals at a fixed success probability.
type Career struct {
	Wins            int    `json:"wins"`
	MaxLosingStreak int    `json:"max_losing_streak"`
	Outcomes        []bool `json:"outcomes"`
}

// SimulateCareer plays deals rounds with no capital attached, to show how long
// losing streaks get at probability p.
func SimulateCareer(p float64, deals int, d Drawer) (Career, error) {
	if err := params.First(params.Unit("p", p), params.AtLeast("deals", deals, 0)); err != nil {
		return Career{}, err
	}

	c := Career{Outcomes: make([]bool, deals)}
	streak := 0
	for i := range c.Outcomes {
		win := d.Draw(p)
		c.Outcomes[i] = win
		if win {
			c.Wins++
			streak = 0
			continue
		}
		streak++
		c.MaxLosingStreak = max(c.MaxLosingStreak, streak)
	}
	return c, nil
}
