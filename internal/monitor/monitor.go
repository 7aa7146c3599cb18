// internal/monitor/monitor.go

package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// StatusSource is the read-only view the monitor needs from the scheduler;
// kept as a narrow interface so the monitor never reaches into scheduler
// internals directly (mirrors the teacher's monitor depending on repository
// interfaces rather than concrete structs).
type StatusSource interface {
	AllStatus() []types.RoomStatus
}

// Monitor periodically snapshots scheduler status, logs a human-readable
// report the way the teacher's publishMetrics does, and exports the same
// numbers as Prometheus gauges.
type Monitor struct {
	source   StatusSource
	bus      *events.EventBus
	interval time.Duration
	stopCh   chan struct{}

	activeServices  prometheus.Gauge
	waitingServices prometheus.Gauge
	hysteresisRooms prometheus.Gauge
	avgServiceSecs  prometheus.Gauge
	avgWaitSecs     prometheus.Gauge
}

func New(source StatusSource, bus *events.EventBus, interval time.Duration, reg prometheus.Registerer) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	m := &Monitor{
		source:   source,
		bus:      bus,
		interval: interval,
		stopCh:   make(chan struct{}),
		activeServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_active_services", Help: "Rooms currently being served.",
		}),
		waitingServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_waiting_services", Help: "Rooms currently waiting for service.",
		}),
		hysteresisRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_hysteresis_rooms", Help: "Rooms powered on but within the hysteresis band.",
		}),
		avgServiceSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_avg_service_seconds", Help: "Average wall-clock seconds rooms have spent in service.",
		}),
		avgWaitSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_avg_wait_seconds", Help: "Average wall-clock seconds rooms have spent waiting.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.activeServices, m.waitingServices, m.hysteresisRooms, m.avgServiceSecs, m.avgWaitSecs)
	}
	return m
}

func (m *Monitor) Start() {
	go m.run()
	logger.Info("monitor started with interval: %v", m.interval)
}

func (m *Monitor) Stop() {
	close(m.stopCh)
	logger.Info("monitor stopped")
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.report()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) report() {
	statuses := m.source.AllStatus()
	now := time.Now()

	var serving, waiting, idle int
	var serviceSecsSum, waitSecsSum float64
	var serviceCount, waitCount int
	for _, st := range statuses {
		switch st.State {
		case types.StateRunning, types.StateReady:
			serving++
			if st.ServiceSince != nil {
				serviceSecsSum += now.Sub(*st.ServiceSince).Seconds()
				serviceCount++
			}
		case types.StateWaiting:
			waiting++
			if st.WaitSince != nil {
				waitSecsSum += now.Sub(*st.WaitSince).Seconds()
				waitCount++
			}
		case types.StateIdle:
			idle++
		}
	}

	var avgServiceSecs, avgWaitSecs float64
	if serviceCount > 0 {
		avgServiceSecs = serviceSecsSum / float64(serviceCount)
	}
	if waitCount > 0 {
		avgWaitSecs = waitSecsSum / float64(waitCount)
	}

	m.activeServices.Set(float64(serving))
	m.waitingServices.Set(float64(waiting))
	m.hysteresisRooms.Set(float64(idle))
	m.avgServiceSecs.Set(avgServiceSecs)
	m.avgWaitSecs.Set(avgWaitSecs)

	logger.Info("=== System Status Report ===")
	logger.Info("Serving: %d, Waiting: %d, Idle(hysteresis): %d, Total: %d, avgService=%.1fs, avgWait=%.1fs",
		serving, waiting, idle, len(statuses), avgServiceSecs, avgWaitSecs)
	for _, st := range statuses {
		if !st.Power {
			continue
		}
		logger.Info("Room %s: state=%s mode=%s fan=%s current=%.2f target=%.2f fee=%.2f",
			st.RoomID, st.State, st.Mode, st.Fan, st.CurrentTemp, st.TargetTemp, st.CurrentFee)
	}
	logger.Info("======================================")

	m.bus.Publish(events.Event{
		Type:      events.EventMetricsUpdated,
		Timestamp: now,
		Data: events.MetricsData{
			Timestamp:       now,
			ActiveServices:  serving,
			WaitingRooms:    waiting,
			HysteresisRooms: idle,
			AvgServiceSecs:  avgServiceSecs,
			AvgWaitSecs:     avgWaitSecs,
		},
	})
}
