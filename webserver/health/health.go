package health

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	log "github.com/iidesho/bragi/sbragi"
)

var Version string
var BuildTime string
var Name = "auditflow"

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

type Check func(ctx context.Context) error

type Health struct {
	IP    net.IP
	Since time.Time

	lock   sync.Mutex
	checks map[string]Check
}

func Init() *Health {
	return &Health{
		IP:     GetOutboundIP(),
		Since:  time.Now(),
		checks: make(map[string]Check),
	}
}

func (h *Health) AddCheck(name string, c Check) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.checks[name] = c
}

type Report struct {
	Status     string            `json:"status"`
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	BuildTime  string            `json:"build_time"`
	IP         net.IP            `json:"ip"`
	Since      time.Time         `json:"running_since"`
	Now        time.Time         `json:"now"`
	Components map[string]string `json:"components,omitempty"`
}

var ip net.IP

func GetOutboundIP() net.IP {
	if ip != nil {
		return ip
	}
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		log.WithError(err).Error("unable to get outbound ip")
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	ip = localAddr.IP

	return ip
}

// Report runs every check. One failing check marks the whole service down.
func (h *Health) Report(ctx context.Context) Report {
	h.lock.Lock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.lock.Unlock()
	sort.Strings(names)

	r := Report{
		Status:    StatusUp,
		Name:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		IP:        h.IP,
		Since:     h.Since,
		Now:       time.Now(),
	}
	if len(names) > 0 {
		r.Components = make(map[string]string, len(names))
	}
	for _, name := range names {
		err := checks[name](ctx)
		if log.WithError(err).Warning("health check failed", "component", name) {
			r.Status = StatusDown
			r.Components[name] = StatusDown
			continue
		}
		r.Components[name] = StatusUp
	}
	return r
}
