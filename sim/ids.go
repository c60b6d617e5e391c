// sim/ids.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

// IDAllocator hands out increasing ids starting at 0. Each session owns
// its own allocators so ids never leak between sessions.
type IDAllocator struct {
	next int
}

func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Reserve makes sure that id, which was supplied from outside (e.g., a
// multiplayer slot), is never handed out by Next.
func (a *IDAllocator) Reserve(id int) {
	if id >= a.next {
		a.next = id + 1
	}
}
