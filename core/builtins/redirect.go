package builtins

import (
	"io"

	"github.com/josephlewis42/bigshell/core/vos"
)

// NoDescriptor is returned by Resolve when a stream must not be written.
const NoDescriptor = -1

// Redirect substitutes Real for writes a builtin makes to Pseudo.
type Redirect struct {
	Pseudo int
	Real   int
}

// Redirections is the ordered redirection list of one builtin invocation.
// Builtins never open, close or duplicate descriptors; they ask Resolve where
// a logical stream currently points and write there.
type Redirections []Redirect

// Resolve maps the logical descriptor fd to the descriptor a builtin should
// write to. The first matching entry wins:
//
//   - fd is some entry's Real: the descriptor is already spoken for and
//     NoDescriptor is returned.
//   - fd is some entry's Pseudo: that entry's Real is returned.
//   - otherwise fd is returned unchanged.
func (r Redirections) Resolve(fd int) int {
	for _, redir := range r {
		if redir.Real == fd {
			return NoDescriptor
		}
		if redir.Pseudo == fd {
			return redir.Real
		}
	}
	return fd
}

// Writer resolves fd and looks it up in files.
func (r Redirections) Writer(files vos.Descriptors, fd int) io.Writer {
	return files.Writer(r.Resolve(fd))
}
