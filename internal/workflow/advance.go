package workflow

import "github.com/rogers-f/phasebook/internal/domain"

// nextCurrent picks the phase to focus after phases[completed] was marked
// completed. It expects phases to already reflect that completion.
//
// Order of preference:
//  1. the first todo phase strictly after the completed one;
//  2. the first phase, from the start of the catalog, that is not completed
//     (this can move focus backwards to an earlier in-progress phase);
//  3. the completed phase itself, when every phase is completed.
func nextCurrent(phases []domain.Phase, completed int) string {
	for i := completed + 1; i < len(phases); i++ {
		if phases[i].Status == domain.StatusTodo {
			return phases[i].ID
		}
	}
	for _, p := range phases {
		if p.Status != domain.StatusCompleted {
			return p.ID
		}
	}
	return phases[completed].ID
}

// AllCompleted reports whether every phase is completed.
func AllCompleted(phases []domain.Phase) bool {
	for _, p := range phases {
		if p.Status != domain.StatusCompleted {
			return false
		}
	}
	return len(phases) > 0
}

// Progress returns how many phases are completed out of the total.
func Progress(phases []domain.Phase) (completed, total int) {
	for _, p := range phases {
		if p.Status == domain.StatusCompleted {
			completed++
		}
	}
	return completed, len(phases)
}
