package tween

import "fmt"

// ScheduleRelease calls release(resource) once delay seconds have
// accumulated on s. id names the timer in logs and on the returned handle,
// which may be cancelled if the resource is reclaimed before the delay
// elapses.
func ScheduleRelease[T any](s *Scheduler, id string, resource T, delay float64, release func(T)) (*Handle, error) {
	if release == nil {
		return nil, fmt.Errorf("%w: nil release func", ErrInvalidParameter)
	}
	return s.After(id, delay, func() {
		release(resource)
	})
}
