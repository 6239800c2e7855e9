package notify

import (
	"context"
	"net"
	"time"
)

// InterfaceProbe polls the local network interfaces and reports whether
// any of them could carry traffic
type InterfaceProbe struct {
	Interval time.Duration

	online func() (bool, error)
}

// NewInterfaceProbe creates a probe polling every interval
func NewInterfaceProbe(interval time.Duration) *InterfaceProbe {
	return &InterfaceProbe{Interval: interval, online: interfacesUp}
}

// Signals emits the current reachability once and then every change,
// the channel is closed when ctx is done
func (p *InterfaceProbe) Signals(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	probe := p.online
	if probe == nil {
		probe = interfacesUp
	}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last *bool
		for {
			if up, err := probe(); err == nil && (last == nil || *last != up) {
				last = &up
				select {
				case ch <- up:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func interfacesUp() (bool, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
				return true, nil
			}
		}
	}
	return false, nil
}

// SleepDetector notices that the process was suspended, the wall clock
// jumps ahead while the monotonic clock does not. A resume is reported as
// a hidden then visible foreground edge.
type SleepDetector struct {
	Interval  time.Duration
	Tolerance time.Duration
}

// Signals emits false then true after every detected suspension
func (d *SleepDetector) Signals(ctx context.Context) <-chan bool {
	ch := make(chan bool, 2)
	interval := d.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	tolerance := d.Tolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Second
	}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			now := time.Now()
			wall := now.Round(0).Sub(prev.Round(0))
			mono := now.Sub(prev)
			prev = now
			if !sleptFor(wall, mono, tolerance) {
				continue
			}
			for _, v := range []bool{false, true} {
				select {
				case ch <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

func sleptFor(wallElapsed, monoElapsed, tolerance time.Duration) bool {
	return wallElapsed-monoElapsed > tolerance
}
