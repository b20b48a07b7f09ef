/*
Package deque implements the Chase–Lev lock-free work-stealing deque.

One goroutine owns the deque and works at the bottom end: Push appends,
Pop removes the newest element (LIFO keeps the owner's cache warm). Any
other goroutine may Steal from the top end (FIFO drains the oldest work
first). Owner and thieves coordinate through a CAS on the top index; the
only contended case is the last remaining element, which exactly one side
wins.

The element type is a type parameter, so schedulers can store task bundles
by value without boxing.
*/
package deque
