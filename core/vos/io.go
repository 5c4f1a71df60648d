package vos

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Well known descriptor numbers.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2

	// FirstPseudoFD is the lowest descriptor FDTable.Open hands out, leaving
	// room below it for the numbers a user can name in a redirection.
	FirstPseudoFD = 10
)

// Descriptors resolves a descriptor number to something that can be written.
type Descriptors interface {
	// Writer returns the writer for fd. Unknown descriptors, including
	// negative ones, discard everything written to them.
	Writer(fd int) io.Writer
}

// FDTable is the shell's virtual descriptor table. Builtins write through it
// so that redirecting one of their streams never touches the descriptors the
// shell process itself holds open.
type FDTable struct {
	files map[int]io.WriteCloser
}

var _ Descriptors = (*FDTable)(nil)

// NewFDTable creates a table with stdout and stderr installed at 1 and 2.
// Neither is closed by the table.
func NewFDTable(stdout, stderr io.Writer) *FDTable {
	t := &FDTable{files: make(map[int]io.WriteCloser)}
	t.Set(Stdout, stdout)
	t.Set(Stderr, stderr)
	return t
}

// Set installs w at fd, replacing (without closing) any previous entry.
// w is never closed by the table.
func (t *FDTable) Set(fd int, w io.Writer) {
	t.files[fd] = nopWriteCloser{toWriterOrDiscard(w)}
}

// Open installs w at the lowest free descriptor at or above FirstPseudoFD and
// returns it. The table takes ownership of w and closes it in Close.
func (t *FDTable) Open(w io.WriteCloser) int {
	fd := FirstPseudoFD
	for {
		if _, ok := t.files[fd]; !ok {
			break
		}
		fd++
	}
	t.files[fd] = w
	return fd
}

// Dup installs a copy of fd at a new descriptor, like dup(2), and returns
// it. Closing the copy leaves the original open.
func (t *FDTable) Dup(fd int) int {
	return t.Open(nopWriteCloser{t.Writer(fd)})
}

// Close releases fd. Closing the standard descriptors is refused.
func (t *FDTable) Close(fd int) error {
	if fd >= Stdin && fd <= Stderr {
		return fmt.Errorf("close %d: refusing to close a standard descriptor", fd)
	}
	w, ok := t.files[fd]
	if !ok {
		return fmt.Errorf("close %d: %w", fd, os.ErrClosed)
	}
	delete(t.files, fd)
	return w.Close()
}

// Writer implements Descriptors.Writer.
func (t *FDTable) Writer(fd int) io.Writer {
	if w, ok := t.files[fd]; ok {
		return w
	}
	return &devNull{}
}

// Descriptors returns the descriptors currently installed, in ascending order.
func (t *FDTable) Descriptors() []int {
	var out []int
	for fd := range t.files {
		out = append(out, fd)
	}
	sort.Ints(out)
	return out
}

func toWriterOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return &devNull{}
	}
	return w
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// devNull implemnets io.Writer and io.Reader, discarding writes and
// failing reads.
type devNull struct{}

var _ io.ReadWriteCloser = (*devNull)(nil)

func (*devNull) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func (*devNull) Write(b []byte) (int, error) {
	return len(b), nil
}

func (*devNull) Close() error {
	return nil
}
