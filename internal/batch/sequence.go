package batch

import "sync/atomic"

// Sequencer provides monotonically increasing flush ids for log correlation.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next flush id.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }
