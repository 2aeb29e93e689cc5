package clipboard

// The browser build has no synchronous clipboard; callers pass TextMirror.Write.
func systemWrite(string) error { return ErrUnsupported }
