package jobs

import (
	"bytes"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// waitResult is a single scripted return from a WaitFunc.
type waitResult struct {
	pid    int
	status unix.WaitStatus
	err    error
}

// Linux wait status encodings.
func exited(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }
func stoppedBy(sig syscall.Signal) unix.WaitStatus {
	return unix.WaitStatus(0x7f | int(sig)<<8)
}

type scriptedWait struct {
	results []waitResult
	calls   []int
}

func (s *scriptedWait) wait(pid int, status *unix.WaitStatus, options int) (int, error) {
	s.calls = append(s.calls, pid)
	if len(s.results) == 0 {
		return -1, unix.ECHILD
	}
	r := s.results[0]
	s.results = s.results[1:]
	*status = r.status
	return r.pid, r.err
}

func newScriptedTable(results ...waitResult) (*Table, *scriptedWait) {
	sw := &scriptedWait{results: results}
	return NewTableWithWait(zerolog.Nop(), sw.wait), sw
}

func TestAddAssignsSmallestFreeID(t *testing.T) {
	table, _ := newScriptedTable()

	assert.Equal(t, 1, table.Add(100, "a").ID)
	assert.Equal(t, 2, table.Add(200, "b").ID)
	assert.Equal(t, 3, table.Add(300, "c").ID)

	table.Remove(2)
	assert.Equal(t, 2, table.Add(400, "d").ID)

	var ids []int
	for _, j := range table.Jobs() {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []int{2, 3, 1}, ids, "most recent first")
}

func TestProcessGroup(t *testing.T) {
	table, _ := newScriptedTable()
	table.Add(4242, "sleep 10")

	pgid, ok := table.ProcessGroup(1)
	assert.True(t, ok)
	assert.Equal(t, 4242, pgid)

	_, ok = table.ProcessGroup(3)
	assert.False(t, ok)
}

func TestWaitForeground(t *testing.T) {
	t.Run("exit removes job", func(t *testing.T) {
		table, sw := newScriptedTable(
			waitResult{pid: 50, status: exited(3)},
			waitResult{pid: 51, status: exited(0)},
		)
		table.Add(50, "make")

		require.NoError(t, table.WaitForeground(1))
		assert.Empty(t, table.Jobs())
		assert.Equal(t, 3, table.LastStatus(), "status comes from the group leader")
		assert.Equal(t, []int{-50, -50, -50}, sw.calls)
	})

	t.Run("stop keeps job", func(t *testing.T) {
		table, _ := newScriptedTable(waitResult{pid: 60, status: stoppedBy(syscall.SIGTSTP)})
		table.Add(60, "vi")

		require.NoError(t, table.WaitForeground(1))
		assert.Len(t, table.Jobs(), 1)
	})

	t.Run("missing job", func(t *testing.T) {
		table, _ := newScriptedTable()
		assert.ErrorIs(t, table.WaitForeground(7), ErrNoSuchJob)
	})

	t.Run("wait error", func(t *testing.T) {
		table, _ := newScriptedTable(waitResult{pid: -1, err: unix.EPERM})
		table.Add(70, "x")

		err := table.WaitForeground(1)
		assert.ErrorIs(t, err, unix.EPERM)
		assert.Len(t, table.Jobs(), 1)
	})
}

func TestWaitProcess(t *testing.T) {
	table, _ := newScriptedTable(waitResult{pid: 80, status: stoppedBy(syscall.SIGTSTP)})

	status, job, err := table.WaitProcess(80, "top")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 128+int(syscall.SIGTSTP), status)
	assert.Equal(t, Job{ID: 1, PGID: 80, Command: "top"}, *job)
}

func TestReap(t *testing.T) {
	table, _ := newScriptedTable(
		// Job 2 (most recent) is still running.
		waitResult{pid: 0},
		// Job 1 finished.
		waitResult{pid: 90, status: exited(0)},
	)
	table.Add(90, "sleep 1")
	table.Add(91, "sleep 100")

	var out bytes.Buffer
	table.Reap(&out)

	assert.Equal(t, "[1] Done\tsleep 1\n", out.String())
	assert.Equal(t, []Job{{ID: 2, PGID: 91, Command: "sleep 100"}}, table.Jobs())
}
