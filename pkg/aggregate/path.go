package aggregate

import (
	"strings"

	"github.com/maxgio92/xstack/pkg/frame"
)

// PathSep separates frames in the textual form of a Path, both in the
// pre-aggregated encoding and in query routes.
const PathSep = ";"

// keySep separates frames inside a Key. Frames never contain it.
const keySep = "\x00"

// Path is a contiguous, ordered run of frames taken from a canonical trace.
type Path []frame.Frame

// Key is the comparable form of a Path, used to index the frequency tables.
type Key string

// ParsePath splits a ';'-joined path. The empty string is the empty Path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}

	return strings.Split(s, PathSep)
}

func (p Path) Key() Key {
	return Key(strings.Join(p, keySep))
}

func (p Path) String() string {
	return strings.Join(p, PathSep)
}

func (p Path) First() frame.Frame {
	return p[0]
}

func (p Path) Last() frame.Frame {
	return p[len(p)-1]
}

// Head is the Path without its last frame.
func (p Path) Head() Path {
	return p[:len(p)-1]
}

// Tail is the Path without its first frame.
func (p Path) Tail() Path {
	return p[1:]
}

// Prepend returns a new Path with f in front of p.
func (p Path) Prepend(f frame.Frame) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, f)

	return append(out, p...)
}

// Append returns a new Path with f after p, leaving p untouched.
func (p Path) Append(f frame.Frame) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)

	return append(out, f)
}
