package domain

import "time"

// DayLayout keys the per-day activity counters.
const DayLayout = "2006-01-02"

type UserStats struct {
	Wins     int            `json:"wins"`
	Losses   int            `json:"losses"`
	Draws    int            `json:"draws"`
	Games    int            `json:"games"`
	Activity map[string]int `json:"activity"`
}

// BumpActivity counts one action on the UTC day of at.
func (s *UserStats) BumpActivity(at time.Time) {
	if s.Activity == nil {
		s.Activity = make(map[string]int)
	}
	s.Activity[at.UTC().Format(DayLayout)]++
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Stats        UserStats `json:"stats"`
	LastActiveAt time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Stats.Activity != nil {
		c.Stats.Activity = make(map[string]int, len(u.Stats.Activity))
		for k, v := range u.Stats.Activity {
			c.Stats.Activity[k] = v
		}
	}
	return &c
}
