// log/stack.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
)

const modulePath = "github.com/slightfim/fimulator/"

// Frame is one call in a Stack. For this module's packages File is
// relative to the module root (e.g., "sim/session.go") and Function
// omits the package path.
type Frame struct {
	File     string
	Line     int
	Function string
}

func (f Frame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + " " + f.Function
}

// Stack is a call stack, innermost call first.
type Stack []Frame

// Callstack returns the stack starting skip calls above its caller; 0
// starts at the caller itself. Frames are collected up to the first one
// outside this module, so runtime and test harness frames don't clutter
// every log entry.
func Callstack(skip int) Stack {
	var pcs [16]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var st Stack
	for {
		frame, more := frames.Next()
		pkg, fn, ours := splitFunction(frame.Function)
		if !ours && len(st) > 0 {
			break
		}

		file := path.Base(frame.File)
		if ours && pkg != "main" {
			file = pkg + "/" + file
		}
		st = append(st, Frame{File: file, Line: frame.Line, Function: fn})

		if !ours || !more {
			break
		}
	}
	return st
}

// splitFunction splits a fully-qualified function name into its
// package's directory in this module and the name within the package.
// ours is false for functions from anywhere else.
func splitFunction(name string) (pkg, fn string, ours bool) {
	if f, ok := strings.CutPrefix(name, "main."); ok {
		return "main", f, true
	}
	rest, ok := strings.CutPrefix(name, modulePath)
	if !ok {
		return "", name, false
	}

	// Type parameters may contain slashes and dots of their own.
	head := rest
	if i := strings.IndexAny(rest, "[("); i >= 0 {
		head = rest[:i]
	}
	start := strings.LastIndexByte(head, '/') + 1
	dot := strings.IndexByte(head[start:], '.')
	if dot < 0 {
		return "", name, false
	}
	return rest[:start+dot], rest[start+dot+1:], true
}

// LogValue reports the stack as a list of "file:line function" strings.
func (st Stack) LogValue() slog.Value {
	s := make([]string, len(st))
	for i, f := range st {
		s[i] = f.String()
	}
	return slog.AnyValue(s)
}
