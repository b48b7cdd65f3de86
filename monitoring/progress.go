package monitoring

import (
	"io"
	"sync"
	"time"

	"github.com/rs/xid"
)

// A ProgressBar is a tracker of the progress. A Total of 0 means the total is
// not known in advance.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// NewProgressBar creates a progress bar that starts now.
func NewProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// TrackReader returns a reader that counts every byte read from r as
// finished.
func (b *ProgressBar) TrackReader(r io.Reader) io.Reader {
	return &progressReader{Reader: r, bar: b}
}

type progressReader struct {
	io.Reader
	bar *ProgressBar
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.bar.IncrementFinished(uint64(n))

	return n, err
}

type progressSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (b *ProgressBar) snapshot() progressSnapshot {
	b.Lock()
	defer b.Unlock()

	return progressSnapshot{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}
