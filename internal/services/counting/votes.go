package counting

import "vehicle-counter-go/internal/models"

// votes accumulates category observations for one track. The leader is
// updated as votes arrive: a category takes the lead only by strictly
// exceeding the current maximum, so on a tie the category that reached
// that count first keeps it.
type votes struct {
	counts      [4]int
	leader      models.Category
	leaderVotes int
}

func (v *votes) add(c models.Category) {
	i := c.Index()
	if i < 0 {
		return
	}
	v.counts[i]++
	if v.counts[i] > v.leaderVotes {
		v.leader = c
		v.leaderVotes = v.counts[i]
	}
}

// best returns the winning category, or false when no vote was recorded
func (v *votes) best() (models.Category, bool) {
	if v == nil || v.leaderVotes == 0 {
		return "", false
	}
	return v.leader, true
}

func (v *votes) get(c models.Category) int {
	if i := c.Index(); i >= 0 {
		return v.counts[i]
	}
	return 0
}
