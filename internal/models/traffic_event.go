package models

import (
	"time"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
)

// TrafficEvent is one traffic log row loaded into the dashboard store.
type TrafficEvent struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	At            int64   `gorm:"index" json:"-"` // unix microseconds
	SimulatedType string  `gorm:"index" json:"tipo_simulado"`
	Result        string  `gorm:"index" json:"resultado"`
	Confidence    float64 `json:"probabilidad"`
}

// EventFromEntry converts a parsed log entry.
func EventFromEntry(e trafficlog.Entry) TrafficEvent {
	return TrafficEvent{
		At:            e.Timestamp.UnixMicro(),
		SimulatedType: string(e.SimulatedType),
		Result:        e.Result,
		Confidence:    e.Confidence,
	}
}

func (e TrafficEvent) Time() time.Time {
	return time.UnixMicro(e.At)
}
