package metrics

import (
	"os"

	"github.com/iidesho/bragi/sbragi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	log      = sbragi.WithLocalScope(sbragi.LevelInfo)
	Registry *prometheus.Registry
)

func Init() {
	Registry = prometheus.NewRegistry()
}

// Push sends the current registry to a prometheus pushgateway once.
func Push(url, job string) error {
	pusher := push.New(url, job).Gatherer(Registry)

	hn, err := os.Hostname()
	if !log.WithError(err).Error("getting hostname for metrics push") {
		pusher.Grouping("instance", hn)
	}
	return pusher.Push()
}

// Register adds collectors to the registry. It is a no-op until Init has been called,
// so packages can create their collectors unconditionally.
func Register(cs ...prometheus.Collector) error {
	if Registry == nil {
		return nil
	}
	for _, c := range cs {
		err := Registry.Register(c)
		if err == nil {
			continue
		}
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			continue
		}
		return err
	}
	return nil
}
