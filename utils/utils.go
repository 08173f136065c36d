package utils

import (
	"errors"
	"log"

	"github.com/jwaldrip/odin/cli"
)

// Sentinel errors shared across the index packages. Callers wrap them
// with fmt.Errorf("...: %w", err) so errors.Is still matches.
var (
	ErrImmutable      = errors.New("matrix specialisation is immutable")
	ErrOutOfRange     = errors.New("index out of range")
	ErrNotAdjacent    = errors.New("nodes are not adjacent in the graph")
	ErrUninitialized  = errors.New("path is not initialized")
	ErrEndOfIteration = errors.New("end of iteration")
	ErrFormat         = errors.New("malformed serialized stream")
	ErrChecksum       = errors.New("graph checksum mismatch")
)

type ArgsOpt struct {
	Prefix  string
	GraphFn string
	NumCPU  int
	TmpDir  string
}

// return global arguments and check if successed
func CheckGlobalArgs(c cli.Command) (opt ArgsOpt, succ bool) {
	opt.Prefix = c.Parent().Flag("p").String()
	if opt.Prefix == "" {
		log.Fatalf("[CheckGlobalArgs] args 'p' not set\n")
	}
	opt.GraphFn = c.Parent().Flag("g").String()
	opt.TmpDir = c.Parent().Flag("tmpdir").String()

	var ok bool
	opt.NumCPU, ok = c.Parent().Flag("t").Get().(int)
	if !ok {
		log.Fatalf("[CheckGlobalArgs] args 't': %v set error\n", c.Parent().Flag("t").String())
	}
	return opt, true
}

func MaxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	} else {
		return b
	}
}

func MinUint64(a, b uint64) uint64 {
	if a > b {
		return b
	} else {
		return a
	}
}
