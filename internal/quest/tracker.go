package quest

import "time"

// Assign returns progress with a fresh record appended for every quest the
// player is not tracking yet.
func Assign(progress []Progress, quests []Quest) []Progress {
	tracked := make(map[string]bool, len(progress))
	for _, p := range progress {
		tracked[p.QuestID] = true
	}
	for _, q := range quests {
		if !tracked[q.ID] {
			progress = append(progress, Progress{QuestID: q.ID})
		}
	}
	return progress
}

// Apply counts ev against every open quest it matches and returns the quests
// that completed with this event. progress is updated in place.
func Apply(progress []Progress, quests map[string]Quest, ev Event, now time.Time) []Quest {
	if ev.Amount <= 0 {
		return nil
	}

	var completed []Quest
	for i := range progress {
		p := &progress[i]
		if p.Completed {
			continue
		}
		q, ok := quests[p.QuestID]
		if !ok || !matches(q.Objective, ev) {
			continue
		}

		p.Count += ev.Amount
		if p.Count >= q.Objective.Count {
			p.Count = q.Objective.Count
			p.Completed = true
			at := now
			p.CompletedAt = &at
			completed = append(completed, q)
		}
	}
	return completed
}

func matches(o Objective, ev Event) bool {
	if o.Kind != ev.Kind {
		return false
	}
	return o.Target == "" || o.Target == ev.Target
}
