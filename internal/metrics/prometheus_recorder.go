package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	triggersFired     *prom.CounterVec
	nagsSent          *prom.CounterVec
	nagsSkipped       *prom.CounterVec
	confirmations     *prom.CounterVec
	activeEscalations prom.Gauge
	deliveryDuration  *prom.HistogramVec
	deliveryResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.triggersFired = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carebot",
			Name:      "triggers_fired_total",
			Help:      "Daily reminder triggers fired by slot",
		}, []string{"slot"})
		pr.nagsSent = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carebot",
			Name:      "nags_sent_total",
			Help:      "Escalation reminders delivered by slot",
		}, []string{"slot"})
		pr.nagsSkipped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carebot",
			Name:      "nags_skipped_total",
			Help:      "Escalation fires that sent nothing, by reason",
		}, []string{"slot", "reason"})
		pr.confirmations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carebot",
			Name:      "confirmations_total",
			Help:      "Confirmation attempts by outcome",
		}, []string{"slot", "result"})
		pr.activeEscalations = prom.NewGauge(prom.GaugeOpts{
			Namespace: "carebot",
			Name:      "active_escalations",
			Help:      "Escalation loops currently armed",
		})
		pr.deliveryDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "carebot",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of Telegram API delivery calls",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "result"})
		pr.deliveryResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carebot",
			Name:      "delivery_results_total",
			Help:      "Telegram API delivery results by success/failure",
		}, []string{"method", "result"})
		reg.MustRegister(pr.triggersFired, pr.nagsSent, pr.nagsSkipped, pr.confirmations, pr.activeEscalations, pr.deliveryDuration, pr.deliveryResults)
	})
	return pr
}

func (p *PrometheusRecorder) IncTriggerFired(slot string) {
	if p == nil || p.triggersFired == nil {
		return
	}
	p.triggersFired.WithLabelValues(slot).Inc()
}

func (p *PrometheusRecorder) IncNagSent(slot string) {
	if p == nil || p.nagsSent == nil {
		return
	}
	p.nagsSent.WithLabelValues(slot).Inc()
}

func (p *PrometheusRecorder) IncNagSkipped(slot string, reason SkipReason) {
	if p == nil || p.nagsSkipped == nil {
		return
	}
	p.nagsSkipped.WithLabelValues(slot, string(reason)).Inc()
}

func (p *PrometheusRecorder) IncConfirmation(slot string, result ConfirmResult) {
	if p == nil || p.confirmations == nil {
		return
	}
	p.confirmations.WithLabelValues(slot, string(result)).Inc()
}

func (p *PrometheusRecorder) SetActiveEscalations(n int) {
	if p == nil || p.activeEscalations == nil {
		return
	}
	p.activeEscalations.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveDeliveryDuration(method string, d time.Duration, success bool) {
	if p == nil || p.deliveryDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.deliveryDuration.WithLabelValues(method, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDeliveryResult(method string, success bool) {
	if p == nil || p.deliveryResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.deliveryResults.WithLabelValues(method, res).Inc()
}
