// Package report formats the final statistics of a run.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/datarecording"
)

// SummaryTableName is the table that RecordSummary writes to.
const SummaryTableName = "csim_summary"

// WriteSummary prints the statistics on one line.
func WriteSummary(w io.Writer, stats cache.Statistics) error {
	_, err := fmt.Fprintf(w,
		"hits:%d misses:%d evictions:%d "+
			"dirty_bytes_in_cache:%d dirty_bytes_evicted:%d\n",
		stats.Hits, stats.Misses, stats.Evictions,
		stats.DirtyBytes, stats.DirtyEvictions)

	return err
}

type jsonReport struct {
	Config cache.Config     `json:"config"`
	Stats  cache.Statistics `json:"stats"`
}

// WriteJSON prints the geometry and the statistics as a JSON object.
func WriteJSON(w io.Writer, config cache.Config, stats cache.Statistics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jsonReport{Config: config, Stats: stats})
}

// SaveResults writes the statistics to a file as space-separated numbers,
// in the order hits, misses, evictions, dirty bytes, dirty evictions.
func SaveResults(path string, stats cache.Statistics) error {
	content := fmt.Sprintf("%d %d %d %d %d\n",
		stats.Hits, stats.Misses, stats.Evictions,
		stats.DirtyBytes, stats.DirtyEvictions)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}

	return nil
}

type summaryEntry struct {
	Name            string
	SetIndexBits    uint32
	Associativity   uint32
	BlockOffsetBits uint32
	Hits            uint64
	Misses          uint64
	Evictions       uint64
	DirtyBytes      uint64
	DirtyEvictions  uint64
}

// RecordSummary stores the final statistics of a simulator in the
// csim_summary table.
func RecordSummary(
	recorder datarecording.DataRecorder,
	name string,
	config cache.Config,
	stats cache.Statistics,
) {
	recorder.CreateTable(SummaryTableName, summaryEntry{})
	recorder.InsertData(SummaryTableName, summaryEntry{
		Name:            name,
		SetIndexBits:    config.SetIndexBits,
		Associativity:   config.Associativity,
		BlockOffsetBits: config.BlockOffsetBits,
		Hits:            stats.Hits,
		Misses:          stats.Misses,
		Evictions:       stats.Evictions,
		DirtyBytes:      stats.DirtyBytes,
		DirtyEvictions:  stats.DirtyEvictions,
	})
	recorder.Flush()
}

// A RecordedRun is one row of the csim_summary table.
type RecordedRun struct {
	Name   string
	Config cache.Config
	Stats  cache.Statistics
}

// ReadSummaries returns the runs stored by RecordSummary, in the order they
// were recorded.
func ReadSummaries(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]RecordedRun, error) {
	reader.MapTable(SummaryTableName, summaryEntry{})

	rows, _, err := reader.Query(ctx, SummaryTableName,
		datarecording.QueryParams{OrderBy: "rowid"})
	if err != nil {
		return nil, fmt.Errorf("reading summaries: %w", err)
	}

	runs := make([]RecordedRun, 0, len(rows))
	for _, row := range rows {
		e := row.(*summaryEntry)
		runs = append(runs, RecordedRun{
			Name: e.Name,
			Config: cache.Config{
				SetIndexBits:    e.SetIndexBits,
				Associativity:   e.Associativity,
				BlockOffsetBits: e.BlockOffsetBits,
			},
			Stats: cache.Statistics{
				Hits:           e.Hits,
				Misses:         e.Misses,
				Evictions:      e.Evictions,
				DirtyBytes:     e.DirtyBytes,
				DirtyEvictions: e.DirtyEvictions,
			},
		})
	}

	return runs, nil
}
