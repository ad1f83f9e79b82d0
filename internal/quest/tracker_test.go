package quest

import (
	"testing"
	"time"
)

func testQuests() []Quest {
	return []Quest{
		{ID: "first-blood", Objective: Objective{Kind: ObjectiveDefeatBots, Count: 2}, Reward: Reward{Credits: 100}},
		{ID: "iron-haul", Objective: Objective{Kind: ObjectiveMineMineral, Target: "iron", Count: 5}, Reward: Reward{Experience: 50}},
	}
}

func index(qs []Quest) map[string]Quest {
	m := make(map[string]Quest, len(qs))
	for _, q := range qs {
		m[q.ID] = q
	}
	return m
}

func TestAssignSkipsTrackedQuests(t *testing.T) {
	progress := []Progress{{QuestID: "first-blood", Count: 1}}
	progress = Assign(progress, testQuests())
	if len(progress) != 2 {
		t.Fatalf("expected 2 records, got %d", len(progress))
	}
	if progress[0].Count != 1 {
		t.Fatalf("existing progress was reset")
	}
}

func TestApplyCompletesOnce(t *testing.T) {
	qs := testQuests()
	progress := Assign(nil, qs)
	now := time.Unix(1000, 0)

	if done := Apply(progress, index(qs), Event{Kind: ObjectiveDefeatBots, Amount: 1}, now); len(done) != 0 {
		t.Fatalf("completed too early")
	}
	done := Apply(progress, index(qs), Event{Kind: ObjectiveDefeatBots, Amount: 3}, now)
	if len(done) != 1 || done[0].ID != "first-blood" {
		t.Fatalf("expected first-blood completion, got %+v", done)
	}
	if progress[0].Count != 2 || !progress[0].Completed || progress[0].CompletedAt == nil {
		t.Fatalf("unexpected progress %+v", progress[0])
	}
	if again := Apply(progress, index(qs), Event{Kind: ObjectiveDefeatBots, Amount: 1}, now); len(again) != 0 {
		t.Fatalf("completed quest counted twice")
	}
}

func TestApplyMatchesTarget(t *testing.T) {
	qs := testQuests()
	progress := Assign(nil, qs)

	Apply(progress, index(qs), Event{Kind: ObjectiveMineMineral, Target: "gold", Amount: 10}, time.Now())
	if progress[1].Count != 0 {
		t.Fatalf("gold should not count toward iron quest")
	}
	Apply(progress, index(qs), Event{Kind: ObjectiveMineMineral, Target: "iron", Amount: 4}, time.Now())
	if progress[1].Count != 4 {
		t.Fatalf("expected 4 iron, got %d", progress[1].Count)
	}
}
