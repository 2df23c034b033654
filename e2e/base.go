package e2e

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/grpc/client"
	"chat-relay/protocol"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/rs/xid"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
	conn   *grpc.ClientConn
	relay  *client.RelayClient
}

func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("E2E_RELAY_ADDR is not set")
	}

	s.conn, err = grpc.NewClient(s.Config.RelayAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.RelayAddr)
	s.relay = client.NewRelayClient(logs.GetLoggerFromLevel(slog.LevelDebug), s.conn)
}

func (s *BaseRelaySuite) TearDownSuite() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Step prints a header so the scenario reads well in -v output.
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// UniqueUser avoids collisions with accounts left by previous runs.
func (s *BaseRelaySuite) UniqueUser(prefix string) string {
	return prefix + "-" + xid.New().String()
}

// Connect registers and logs in a fresh user, returning its stream and
// session token.
func (s *BaseRelaySuite) Connect(ctx context.Context, user string) (*client.Stream, string) {
	stream, err := s.relay.Connect(ctx, 64)
	s.Require().NoError(err)

	var ok bool
	s.Require().NoError(stream.Invoke(ctx, protocol.Register, &ok, user, "password123"))
	s.Require().True(ok)
	s.Require().NoError(stream.Invoke(ctx, protocol.Login, &ok, user, "password123"))
	s.Require().True(ok)

	var token string
	s.Require().NoError(json.Unmarshal(s.WaitEvent(stream, domain.ReceiveSessionToken)[0], &token))
	return stream, token
}

func (s *BaseRelaySuite) WaitEvent(stream *client.Stream, name domain.EventName) []json.RawMessage {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-stream.Events():
			s.Require().True(ok, "stream ended while waiting for %s", name)
			if f.Method == string(name) {
				return f.Args
			}
		case <-timeout:
			s.Require().FailNow("event not received", string(name))
		}
	}
}
