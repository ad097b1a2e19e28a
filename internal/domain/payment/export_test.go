package payment

// SetRandomID replaces the order id source for the duration of a test.
func SetRandomID(fn func() (string, error)) (restore func()) {
	prev := newRandomID
	newRandomID = fn
	return func() { newRandomID = prev }
}
