// Package engine provides the actor runtime shared by every cartridge
// lifecycle machine.
//
// Each cartridge instance is a single logical actor: one FIFO event queue,
// one piece of mutable state, processed strictly sequentially by a
// single-writer run loop. Concurrency exists only at the arrival boundary:
// player events may be enqueued from any goroutine, but every transition is
// applied atomically by the one goroutine running the loop.
//
// Nothing in a machine ever blocks. What looks like waiting (a countdown, a
// reveal pause, a ready-up timeout) is a timer scheduled by the machine's
// transition; when it fires, the scheduler posts a timer event into the
// same queue and it is handled with exactly the same sequential discipline
// as a player action. When a player event and a timer race for the same
// transition, whichever the queue delivers first wins and the loser's
// attempt is a no-op because the phase has already changed.
package engine
