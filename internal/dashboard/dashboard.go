// Package dashboard derives read-only views over a tenant's deals. Everything
// here is pure: callers load the data and pass in the clock.
package dashboard

import (
	"sort"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
)

type PipelineBucket struct {
	Stage models.DealStage `json:"stage"`
	Label string           `json:"label"`
	Value float64          `json:"value"`
	Count int              `json:"count"`
}

// PipelineChartData buckets deals by active stage. All three buckets are
// always returned, in board order.
func PipelineChartData(deals []models.Deal) []PipelineBucket {
	buckets := make([]PipelineBucket, len(pipeline.ActiveStages))
	index := make(map[models.DealStage]int, len(pipeline.ActiveStages))
	for i, stage := range pipeline.ActiveStages {
		buckets[i] = PipelineBucket{Stage: stage, Label: pipeline.Label(stage)}
		index[stage] = i
	}

	for _, d := range deals {
		i, ok := index[d.Stage]
		if !ok {
			continue
		}
		buckets[i].Count++
		buckets[i].Value += dealValue(d)
	}
	return buckets
}

type StaleDeal struct {
	Deal        models.Deal `json:"deal"`
	LastTouched time.Time   `json:"last_touched"`
	DaysIdle    int         `json:"days_idle"`
}

// StaleDeals lists active deals untouched for longer than thresholdDays,
// oldest first. A deal is touched by its newest activity, or by its own
// update when it has none.
func StaleDeals(deals []models.Deal, activities []models.DealActivity, thresholdDays int, now time.Time) []StaleDeal {
	latest := make(map[uint64]time.Time, len(activities))
	for _, a := range activities {
		if t, ok := latest[a.DealID]; !ok || a.CreatedAt.After(t) {
			latest[a.DealID] = a.CreatedAt
		}
	}

	stale := make([]StaleDeal, 0)
	for _, d := range deals {
		if !pipeline.IsActive(d.Stage) {
			continue
		}
		touched, ok := latest[d.ID]
		if !ok {
			touched = d.UpdatedAt
		}
		if !IsStale(&touched, thresholdDays, now) {
			continue
		}
		stale = append(stale, StaleDeal{
			Deal:        d,
			LastTouched: touched,
			DaysIdle:    int(now.Sub(touched).Hours() / 24),
		})
	}

	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].LastTouched.Before(stale[j].LastTouched)
	})
	return stale
}

// IsStale reports whether ts is more than thresholdDays before now. A missing
// timestamp is always stale.
func IsStale(ts *time.Time, thresholdDays int, now time.Time) bool {
	if ts == nil || ts.IsZero() {
		return true
	}
	return now.Sub(*ts) > time.Duration(thresholdDays)*24*time.Hour
}

type KPIs struct {
	OpenDeals      int     `json:"open_deals"`
	OpenValue      float64 `json:"open_value"`
	WonDeals       int     `json:"won_deals"`
	WonValue       float64 `json:"won_value"`
	LostDeals      int     `json:"lost_deals"`
	WinRate        float64 `json:"win_rate"`
	OpenTasks      int     `json:"open_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	DealsThisMonth int     `json:"deals_created_this_month"`
}

// Summarize computes the headline numbers. WinRate is won / (won + lost), or
// zero when nothing has closed yet.
func Summarize(deals []models.Deal, tasks []models.DealTask, now time.Time) KPIs {
	var k KPIs
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for _, d := range deals {
		switch {
		case d.Stage == models.StageWon:
			k.WonDeals++
			k.WonValue += dealValue(d)
		case d.Stage == models.StageLost:
			k.LostDeals++
		case pipeline.IsActive(d.Stage):
			k.OpenDeals++
			k.OpenValue += dealValue(d)
		}
		if !d.CreatedAt.Before(monthStart) {
			k.DealsThisMonth++
		}
	}
	if closed := k.WonDeals + k.LostDeals; closed > 0 {
		k.WinRate = float64(k.WonDeals) / float64(closed)
	}

	for _, t := range tasks {
		if t.Status == models.TaskStatusDone {
			continue
		}
		k.OpenTasks++
		if t.DueDate != nil && t.DueDate.Before(now) {
			k.OverdueTasks++
		}
	}
	return k
}

func dealValue(d models.Deal) float64 {
	if d.Value == nil {
		return 0
	}
	return *d.Value
}
