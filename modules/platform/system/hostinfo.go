package system

import (
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
)

// HostInfo holds the facts shown in the greeter header
type HostInfo struct {
	Hostname        string
	Platform        string // e.g. arch, debian
	PlatformVersion string
	KernelVersion   string
	Uptime          time.Duration
	LoadAvg1        float64
	UpdatedAt       time.Time
}

// Summary returns a one-line description, e.g. "archbox · arch · up 2h5m"
func (h HostInfo) Summary() string {
	if h.Hostname == "" {
		return ""
	}
	summary := h.Hostname
	if h.Platform != "" {
		summary += " · " + h.Platform
		if h.PlatformVersion != "" {
			summary += " " + h.PlatformVersion
		}
	}
	if h.Uptime > 0 {
		summary += " · up " + FormatUptime(h.Uptime)
	}
	return summary
}

// FormatUptime renders an uptime as days, hours and minutes
func FormatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// HostCollector refreshes host facts in the background.
// It can be started again after Stop.
type HostCollector struct {
	mu          sync.RWMutex
	info        HostInfo
	refreshRate time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}

	read func() HostInfo
}

// NewHostCollector creates a new host collector
func NewHostCollector(refreshRate time.Duration) *HostCollector {
	if refreshRate < time.Second {
		refreshRate = time.Second
	}
	return &HostCollector{
		refreshRate: refreshRate,
		read:        ReadHostInfo,
	}
}

// Start collects once, then keeps refreshing until Stop
func (hc *HostCollector) Start() {
	hc.mu.Lock()
	if hc.stopCh != nil {
		hc.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	hc.stopCh = stop
	hc.doneCh = done
	hc.mu.Unlock()

	hc.collect()

	go func() {
		defer close(done)
		ticker := time.NewTicker(hc.refreshRate)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hc.collect()
			case <-stop:
				return
			}
		}
	}()
}

// Stop stops the collection and waits for the refresh loop to exit
func (hc *HostCollector) Stop() {
	hc.mu.Lock()
	stop, done := hc.stopCh, hc.doneCh
	hc.stopCh, hc.doneCh = nil, nil
	hc.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Get returns the latest host facts
func (hc *HostCollector) Get() HostInfo {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.info
}

func (hc *HostCollector) collect() {
	info := hc.read()

	hc.mu.Lock()
	hc.info = info
	hc.mu.Unlock()
}

// ReadHostInfo reads host facts once using gopsutil
func ReadHostInfo() HostInfo {
	var info HostInfo

	if stat, err := host.Info(); err == nil {
		info.Hostname = stat.Hostname
		info.Platform = stat.Platform
		info.PlatformVersion = stat.PlatformVersion
		info.KernelVersion = stat.KernelVersion
		info.Uptime = time.Duration(stat.Uptime) * time.Second
	}

	// Load average is not available everywhere
	if avg, err := load.Avg(); err == nil {
		info.LoadAvg1 = avg.Load1
	}

	info.UpdatedAt = time.Now()
	return info
}
