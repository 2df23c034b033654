package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	GrpcPort             int           `env:"GRPC_PORT,default=50051"`
	HttpPort             int           `env:"HTTP_PORT,default=8080"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	AuthTokenSecret      string        `env:"AUTH_TOKEN_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Plugins              string        `env:"PLUGINS"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MaxDocumentSize      int           `env:"MAX_DOCUMENT_SIZE,default=10485760"`
	MaxFrameSize         int           `env:"MAX_FRAME_SIZE,default=16777216"`
	SearchLimit          int           `env:"SEARCH_LIMIT,default=20"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=8"`
}

// PluginIDs splits the comma separated PLUGINS value, order is kept.
func (c Config) PluginIDs() []string {
	var ids []string
	for _, id := range strings.Split(c.Plugins, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func (c Config) HttpAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HttpPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
