// Package host describes the time sources an execution context exposes.
//
// A browser context offers two: the high resolution timer behind
// performance.now() and the wall clock behind Date.now(). Both report
// float64 milliseconds. Worklets and some embedders have no Performance
// object at all, which Host reports through the second return value of
// Performance.
package host

// Performance is the high resolution timer of one execution context.
type Performance interface {
	// Now returns milliseconds elapsed since the context's time origin.
	Now() float64

	// TimeOrigin returns the context's time origin in milliseconds since
	// the Unix epoch.
	TimeOrigin() float64
}

// Date is the host wall clock.
type Date interface {
	// Now returns whole milliseconds since the Unix epoch.
	Now() float64
}

// Host gives access to the time sources of the current execution context.
type Host interface {
	// Performance returns the timer, or false if the context has none.
	Performance() (Performance, bool)

	Date() Date
}
