// internal/billing/service.go

package billing

import (
	"fmt"

	"backend/internal/db"
)

// Service answers billing queries over the detail records the scheduler
// writes as it runs; it never mutates fee state itself (the scheduler owns
// that, the way the teacher's BillingService only reads what ac_service
// writes).
type Service struct {
	details db.DetailRepository
}

func NewService(details db.DetailRepository) *Service {
	return &Service{details: details}
}

// History returns every detail record ever opened for a room, in
// chronological order.
func (s *Service) History(roomID string) ([]db.DetailRecord, error) {
	recs, err := s.details.HistoryForRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("billing history for room %s: %w", roomID, err)
	}
	return recs, nil
}

// TotalFee sums the accrued fee across every (open or closed) detail
// record for a room.
func (s *Service) TotalFee(roomID string) (float64, error) {
	recs, err := s.details.HistoryForRoom(roomID)
	if err != nil {
		return 0, fmt.Errorf("total fee for room %s: %w", roomID, err)
	}
	var total float64
	for _, r := range recs {
		total += r.AccruedFee
	}
	return total, nil
}
