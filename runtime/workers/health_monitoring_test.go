package workers

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitoringWorker_Samples_Own_Process(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := domain.NewGlobalMonitoring(time.Minute)

	// Given no sample yet, the process is reported as a ghost
	req.Equal(domain.GHOST, monitoring.GetSnapshot().Status)

	worker := NewHealthMonitoringWorker(log, monitoring, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// When the worker runs until the context expires
	req.NoError(worker.Run(ctx))

	// Then the snapshot describes this very process
	snapshot := monitoring.GetSnapshot()
	req.Equal(domain.ALIVE, snapshot.Status)
	req.Equal(worker.pid, snapshot.PID)
	req.NotZero(snapshot.RSS)
}
