package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTableName = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

type execInfo struct {
	Property string
	Value    string
}

// execRecorder records how and when the program was run.
type execRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		recorder: recorder,
	}

	e.recorder.CreateTable(execTableName, execInfo{})

	return e
}

// Start remembers the start time, the command line, and the working
// directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", time.Now().Format(timeLayout)},
		execInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}

	e.entries = append(e.entries, execInfo{"Working Directory", cwd})
}

// End writes the collected entries along with the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.recorder.InsertData(execTableName,
		execInfo{"End Time", time.Now().Format(timeLayout)})

	e.entries = nil
}
