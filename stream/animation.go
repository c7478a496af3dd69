package stream

// An Animation implements a way to render a specific animation.
type Animation interface {
	CalculateFrame(runtimeMs int64) *Frame
}

// Named is implemented by animations that report a display name.
type Named interface {
	Name() string
}

// AnimationName returns a display name for a.
func AnimationName(a Animation) string {
	if n, ok := a.(Named); ok {
		return n.Name()
	}
	return "animation"
}
