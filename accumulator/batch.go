package accumulator

import (
	"github.com/xraph/levels/account"
	"github.com/xraph/levels/id"
)

// Batch is the result of one XP drain. Its records stay in flight until the
// batch is passed to Ack or Requeue.
type Batch struct {
	ID      id.BatchID        `json:"id"`
	Records []*account.Record `json:"records"`
}

// Len returns the number of records. A nil batch is empty.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}
