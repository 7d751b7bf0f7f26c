package progression

import "github.com/kjarisk/athena/internal/model"

// XP awarded for everyday activity.
const (
	XPOneOnOne = 25
	XPWorkshop = 50
)

// ActionXP returns the reward for completing an action of priority p.
func ActionXP(p model.ActionPriority) int {
	switch p {
	case model.PriorityHigh:
		return 30
	case model.PriorityMedium:
		return 20
	default:
		return 10
	}
}

func count(metric model.Metric, target int) model.Condition {
	return model.Condition{Kind: model.ConditionCount, Metric: metric, Target: target}
}

// Catalog returns the static achievement catalog. IDs are stable and used as
// the unlock key; the order is the evaluation order.
func Catalog() []model.Achievement {
	return []model.Achievement{
		{
			ID: "first-action", Name: "First Step", Icon: "footprints", XPReward: 25,
			Description: "Complete your first action",
			Condition:   count(model.MetricActionsCompleted, 1),
		},
		{
			ID: "action-hero", Name: "Action Hero", Icon: "zap", XPReward: 100,
			Description: "Complete 10 actions",
			Condition:   count(model.MetricActionsCompleted, 10),
		},
		{
			ID: "closer", Name: "Closer", Icon: "check-circle", XPReward: 300,
			Description: "Complete 50 actions",
			Condition:   count(model.MetricActionsCompleted, 50),
		},
		{
			ID: "team-builder", Name: "Team Builder", Icon: "users", XPReward: 50,
			Description: "Add 5 employees",
			Condition:   count(model.MetricEmployeesAdded, 5),
		},
		{
			ID: "good-listener", Name: "Good Listener", Icon: "message-circle", XPReward: 100,
			Description: "Log 10 one-on-ones",
			Condition:   count(model.MetricOneOnOnesLogged, 10),
		},
		{
			ID: "knowledge-sharer", Name: "Knowledge Sharer", Icon: "presentation", XPReward: 100,
			Description: "Host 3 workshops",
			Condition:   count(model.MetricWorkshopsHosted, 3),
		},
		{
			ID: "organizer", Name: "Organizer", Icon: "tag", XPReward: 75,
			Description: "Have 25 calendar events tagged with a work area",
			Condition:   count(model.MetricEventsTagged, 25),
		},
		{
			ID: "on-a-roll", Name: "On a Roll", Icon: "flame", XPReward: 50,
			Description: "Keep a 3 day activity streak",
			Condition:   model.Condition{Kind: model.ConditionStreak, Metric: model.MetricCurrentStreak, Target: 3},
		},
		{
			ID: "week-warrior", Name: "Week Warrior", Icon: "calendar-check", XPReward: 150,
			Description: "Keep a 7 day activity streak",
			Condition:   model.Condition{Kind: model.ConditionStreak, Metric: model.MetricCurrentStreak, Target: 7},
		},
		{
			ID: "rising-leader", Name: "Rising Leader", Icon: "trending-up", XPReward: 200,
			Description: "Reach level 5",
			Condition:   model.Condition{Kind: model.ConditionMilestone, Metric: model.MetricLevel, Target: 5},
		},
	}
}
