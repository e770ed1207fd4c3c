package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/pkg/chroma"
	"broadrange-backend/pkg/fuzzy"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type searchUsecase struct {
	plans PlanLister
	index VectorIndex
}

// NewSearchUsecase creates the search usecase. index may be nil, in which
// case semantic search reports ErrSemanticUnavailable and indexing is a no-op.
func NewSearchUsecase(plans PlanLister, index VectorIndex) SearchUsecase {
	return &searchUsecase{plans: plans, index: index}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (u *searchUsecase) FuzzySearch(userID, query string, limit int) ([]TaskHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []TaskHit{}, nil
	}

	plans, err := u.plans.FindByUserID(userID, nil)
	if err != nil {
		return nil, err
	}

	hits := []TaskHit{}
	for _, p := range plans {
		for _, t := range p.Tasks {
			fields := []fuzzy.Field{
				{Text: t.Description, Weight: 3},
				{Text: t.Notes, Weight: 1.5},
				{Text: p.Name, Weight: 0.5},
			}
			for _, st := range t.SubTasks {
				fields = append(fields, fuzzy.Field{Text: st.Text, Weight: 1})
			}

			score := fuzzy.CalculateRelevanceScore(query, fields...)
			if score <= 0 {
				continue
			}
			hits = append(hits, TaskHit{
				Task:       t,
				PlanID:     p.ID,
				PlanName:   p.Name,
				PlanStatus: p.Status,
				Score:      score,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Task.Date < hits[j].Task.Date
	})

	if limit = clampLimit(limit); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (u *searchUsecase) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]TaskHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []TaskHit{}, nil
	}
	if u.index == nil {
		return nil, ErrSemanticUnavailable
	}
	limit = clampLimit(limit)

	// Fetch more to account for stale index entries
	found, err := u.index.SemanticSearch(ctx, userID, query, limit+10)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	if len(found) == 0 {
		return []TaskHit{}, nil
	}

	plans, err := u.plans.FindByUserID(userID, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]TaskHit)
	for _, p := range plans {
		for _, t := range p.Tasks {
			byID[t.ID] = TaskHit{Task: t, PlanID: p.ID, PlanName: p.Name, PlanStatus: p.Status}
		}
	}

	hits := []TaskHit{}
	var stale []string
	for _, h := range found {
		hit, ok := byID[h.TaskID]
		if !ok {
			stale = append(stale, h.TaskID)
			continue
		}
		hit.Score = 1 - h.Distance
		hits = append(hits, hit)
		if len(hits) >= limit {
			break
		}
	}

	if len(stale) > 0 {
		log.Printf("[Search] Dropping %d stale index entries for user %s", len(stale), userID)
		if err := u.index.DeleteTasks(ctx, stale); err != nil {
			log.Printf("[Search] Error deleting stale entries: %v", err)
		}
	}
	return hits, nil
}

func (u *searchUsecase) Reindex(ctx context.Context, userID string) (int, error) {
	if u.index == nil {
		return 0, ErrSemanticUnavailable
	}
	plans, err := u.plans.FindByUserID(userID, nil)
	if err != nil {
		return 0, err
	}

	var docs []chroma.TaskDocument
	for _, p := range plans {
		docs = append(docs, taskDocuments(p)...)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := u.index.UpsertTasks(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (u *searchUsecase) IndexPlan(ctx context.Context, plan *domain.Plan) {
	if u.index == nil || plan == nil {
		return
	}
	docs := taskDocuments(plan)
	if len(docs) == 0 {
		return
	}
	if err := u.index.UpsertTasks(ctx, docs); err != nil {
		log.Printf("[Search] Error indexing plan %s: %v", plan.ID, err)
		return
	}
	log.Printf("[Search] Indexed %d tasks of plan %s", len(docs), plan.ID)
}

func (u *searchUsecase) RemoveTasks(ctx context.Context, taskIDs []string) {
	if u.index == nil || len(taskIDs) == 0 {
		return
	}
	if err := u.index.DeleteTasks(ctx, taskIDs); err != nil {
		log.Printf("[Search] Error removing %d tasks from index: %v", len(taskIDs), err)
	}
}

func taskDocuments(plan *domain.Plan) []chroma.TaskDocument {
	docs := make([]chroma.TaskDocument, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		docs = append(docs, chroma.TaskDocument{
			TaskID:  t.ID,
			PlanID:  plan.ID,
			UserID:  plan.UserID,
			Date:    t.Date,
			Subject: plan.Parameters.SubjectList.MentionedIn(t.Description),
			Text:    documentText(t),
		})
	}
	return docs
}

func documentText(t domain.Task) string {
	var b strings.Builder
	b.WriteString(t.Description)
	if t.Notes != "" {
		b.WriteString("\n\nNotes: ")
		b.WriteString(t.Notes)
	}
	for _, st := range t.SubTasks {
		b.WriteString("\n- ")
		b.WriteString(st.Text)
	}
	return b.String()
}
