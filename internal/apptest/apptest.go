// Package apptest builds a complete relay on temporary storage for
// transport and end-to-end tests.
package apptest

import (
	"chat-relay/internal"
	"chat-relay/internal/app"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const Secret = "test-secret"

func Config(t testing.TB) internal.Config {
	return internal.Config{
		Host:                 "127.0.0.1",
		ConnectionBufferSize: 64,
		DeliveryTimeout:      time.Second,
		RestartInterval:      100 * time.Millisecond,
		MetricInterval:       50 * time.Millisecond,
		AuthTokenSecret:      Secret,
		AuthTokenDuration:    time.Hour,
		BadgerFilepath:       t.TempDir(),
		BlugeFilepath:        t.TempDir(),
		LogLevel:             "DEBUG",
		Plugins:              "commands",
		CharReplacement:      "*",
		MaxDocumentSize:      1 << 20,
		MaxFrameSize:         4 << 20,
		SearchLimit:          10,
		LowCapacityThreshold: 4,
	}
}

// New opens storage under t.TempDir and closes it with the test.
func New(t testing.TB, config internal.Config) *app.App {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writer.Close()
		_ = db.Close()
	})

	a, err := app.New(context.Background(), log, config, db, writer)
	require.NoError(t, err)
	return a
}
