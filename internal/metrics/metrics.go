// Package metrics exposes session counters as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deskbridge"

// Snapshot is a point-in-time view of a session's counters.
type Snapshot struct {
	Phase          int
	BytesIn        uint64
	BytesOut       uint64
	MessagesIn     uint64
	MessagesOut    uint64
	VideoDecoded   uint64
	VideoDropped   uint64
	FramesRendered uint64
	FPS            int
	AudioDecoded   uint64
	AudioDropped   uint64
	InputSent      uint64
}

// Source produces snapshots; the session controller implements it.
type Source interface {
	MetricsSnapshot() Snapshot
}

// Metrics holds the collectors registered for one session.
type Metrics struct {
	Registry *prometheus.Registry

	Phase          prometheus.GaugeFunc
	FPS            prometheus.GaugeFunc
	BytesIn        prometheus.CounterFunc
	BytesOut       prometheus.CounterFunc
	MessagesIn     prometheus.CounterFunc
	MessagesOut    prometheus.CounterFunc
	VideoDecoded   prometheus.CounterFunc
	VideoDropped   prometheus.CounterFunc
	FramesRendered prometheus.CounterFunc
	AudioDecoded   prometheus.CounterFunc
	AudioDropped   prometheus.CounterFunc
	InputSent      prometheus.CounterFunc
}

// New registers collectors reading from src on a fresh registry. peer is
// attached as a constant label.
func New(src Source, peer string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)
	labels := prometheus.Labels{"peer": peer}

	counter := func(name, help string, get func(Snapshot) uint64) prometheus.CounterFunc {
		return f.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(get(src.MetricsSnapshot())) })
	}
	gauge := func(name, help string, get func(Snapshot) int) prometheus.GaugeFunc {
		return f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(get(src.MetricsSnapshot())) })
	}

	return &Metrics{
		Registry:       reg,
		Phase:          gauge("session_phase", "Current session phase as its ordinal.", func(s Snapshot) int { return s.Phase }),
		FPS:            gauge("render_fps", "Genuinely new frames drawn in the last second.", func(s Snapshot) int { return s.FPS }),
		BytesIn:        counter("transport_bytes_received_total", "Bytes received on the relay channel.", func(s Snapshot) uint64 { return s.BytesIn }),
		BytesOut:       counter("transport_bytes_sent_total", "Bytes sent on the relay channel.", func(s Snapshot) uint64 { return s.BytesOut }),
		MessagesIn:     counter("messages_decrypted_total", "Stream messages decrypted.", func(s Snapshot) uint64 { return s.MessagesIn }),
		MessagesOut:    counter("messages_encrypted_total", "Stream messages encrypted.", func(s Snapshot) uint64 { return s.MessagesOut }),
		VideoDecoded:   counter("video_frames_decoded_total", "Video chunks decoded.", func(s Snapshot) uint64 { return s.VideoDecoded }),
		VideoDropped:   counter("video_frames_dropped_total", "Video chunks dropped on decode failure.", func(s Snapshot) uint64 { return s.VideoDropped }),
		FramesRendered: counter("render_frames_total", "Genuinely new frames drawn.", func(s Snapshot) uint64 { return s.FramesRendered }),
		AudioDecoded:   counter("audio_frames_decoded_total", "Audio frames scheduled.", func(s Snapshot) uint64 { return s.AudioDecoded }),
		AudioDropped:   counter("audio_frames_dropped_total", "Audio frames dropped.", func(s Snapshot) uint64 { return s.AudioDropped }),
		InputSent:      counter("input_events_sent_total", "Input messages sent to the peer.", func(s Snapshot) uint64 { return s.InputSent }),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
