package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/database"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/models"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
)

func benchDashboard(b *testing.B, n int) *DashboardService {
	b.Helper()
	db, err := database.Connect(database.MemoryDSN(), &models.TrafficEvent{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { database.Close(db) })

	path := filepath.Join(b.TempDir(), "traffic_log.csv")
	w, err := trafficlog.NewWriter(path)
	if err != nil {
		b.Fatal(err)
	}
	start := time.Now().Add(-time.Duration(n) * time.Second)
	for i := 0; i < n; i++ {
		e := trafficlog.Entry{
			Timestamp:     start.Add(time.Duration(i) * time.Second),
			SimulatedType: trafficlog.Benign,
			Result:        classifier.LabelBenign,
			Confidence:    0.9,
		}
		if i%3 == 0 {
			e.SimulatedType, e.Result = trafficlog.Malicious, classifier.LabelDDoS
		}
		if err := w.Append(e); err != nil {
			b.Fatal(err)
		}
	}

	svc := NewDashboardService(db, path)
	if _, err := svc.Refresh(context.Background()); err != nil {
		b.Fatal(err)
	}
	return svc
}

func BenchmarkDashboardService_Refresh(b *testing.B) {
	svc := benchDashboard(b, 5000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Refresh(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDashboardService_Queries(b *testing.B) {
	svc := benchDashboard(b, 5000)
	for _, w := range []Window{WindowDay, WindowAll} {
		b.Run(fmt.Sprintf("summary/%s", w), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := svc.Summary(w); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(fmt.Sprintf("timeline/%s", w), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := svc.Timeline(w, BucketMinute); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
