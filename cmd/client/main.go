package main

import (
	"bufio"
	"chat-relay/domain"
	"chat-relay/infrastructure/grpc/client"
	"chat-relay/protocol"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddress string        `envconfig:"RELAY_ADDR" default:"localhost:50051"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"WARN"`
	Colours       bool          `envconfig:"COLOURS" default:"true"`
	CallTimeout   time.Duration `envconfig:"CALL_TIMEOUT" default:"10s"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()

	rc := client.NewRelayClient(log, conn)
	stream, err := rc.Connect(ctx, 256)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not open chat stream: %w", err)
	}
	defer stream.Close()

	session := &cli{config: config, relay: rc, stream: stream}
	go session.printEvents()

	color.Cyan.Printf("Connected to %s, type help for commands\n", config.ServerAddress)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-stream.Done():
			if err := stream.Err(); err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := parseLine(line)
			if err != nil {
				color.Red.Println(err)
				continue
			}
			if cmd.name == "quit" {
				return exitOK, nil
			}
			session.execute(ctx, cmd)
		}
	}
}

type cli struct {
	config Config
	relay  *client.RelayClient
	stream *client.Stream

	mu    sync.Mutex
	token string
}

func (c *cli) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *cli) execute(ctx context.Context, cmd command) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	switch cmd.name {
	case "help":
		fmt.Println(usage)
	case "stats":
		c.stats(ctx)
	case "upload":
		c.upload(ctx, cmd.args[0].(string), cmd.args[1].(string))
	case "download":
		c.download(ctx, cmd.args[0].(string), cmd.args[1].(string))
	case "groups":
		var groups []string
		if c.invoke(ctx, cmd.method, &groups) {
			printTable([]string{"Group"}, groups, func(g string) []string { return []string{g} })
		}
	case "plugins":
		var infos []domain.PluginInfo
		if c.invoke(ctx, cmd.method, &infos) {
			printTable([]string{"ID", "Name", "Version"}, infos, func(p domain.PluginInfo) []string {
				return []string{p.ID, p.Name, p.Version}
			})
		}
	case "search":
		var hits []domain.DocumentSummary
		if c.invoke(ctx, cmd.method, &hits, cmd.args...) {
			printTable([]string{"ID", "Filename", "Author", "Version", "Mime"}, hits, func(d domain.DocumentSummary) []string {
				return []string{d.ID, d.Filename, d.Author, strconv.Itoa(d.Version), d.MimeType.String()}
			})
		}
	default:
		var result any
		if c.invoke(ctx, cmd.method, &result, cmd.args...) {
			color.Green.Printf("%s: %v\n", cmd.name, result)
		}
	}
}

func (c *cli) invoke(ctx context.Context, method protocol.Method, out any, args ...any) bool {
	if err := c.stream.Invoke(ctx, method, out, args...); err != nil {
		color.Red.Printf("%s failed: %v\n", method, err)
		return false
	}
	return true
}

func (c *cli) stats(ctx context.Context) {
	token := c.sessionToken()
	if token == "" {
		color.Red.Println("stats needs a login first")
		return
	}
	stats, err := c.relay.Stats(ctx, token)
	if err != nil {
		color.Red.Printf("stats failed: %v\n", err)
		return
	}
	rows := [][]string{
		{"Connections", strconv.Itoa(stats.Connections)},
		{"Identities", strconv.Itoa(stats.Identities)},
		{"Open groups", strings.Join(stats.OpenGroups, ", ")},
		{"Frames in/out", fmt.Sprintf("%d / %d", stats.FramesIn, stats.FramesOut)},
		{"Rates in/out", fmt.Sprintf("%.1f / %.1f frames/s", stats.InboundRate, stats.OutboundRate)},
		{"CPU / RAM", fmt.Sprintf("%.1f%% / %.1f%%", stats.Process.CPU, stats.Process.RAM)},
		{"Goroutines", strconv.Itoa(stats.Goroutines)},
		{"Uptime", stats.Uptime},
	}
	printTable([]string{"Metric", "Value"}, rows, func(r []string) []string { return r })
}

func (c *cli) upload(ctx context.Context, path, metadata string) {
	content, err := os.ReadFile(path)
	if err != nil {
		color.Red.Printf("upload failed: %v\n", err)
		return
	}
	var id string
	if c.invoke(ctx, protocol.UploadDocument, &id, filepath.Base(path), content, "", metadata) {
		color.Green.Printf("uploaded %s as %s\n", path, id)
	}
}

func (c *cli) download(ctx context.Context, id, path string) {
	var doc *domain.DownloadedDocument
	if !c.invoke(ctx, protocol.DownloadDocument, &doc, id) {
		return
	}
	if doc == nil {
		color.Yellow.Printf("no document %s\n", id)
		return
	}
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		color.Red.Printf("download failed: %v\n", err)
		return
	}
	color.Green.Printf("saved %s (%d bytes)\n", doc.Filename, len(doc.Content))
}

func (c *cli) printEvents() {
	for f := range c.stream.Events() {
		args := make([]any, len(f.Args))
		for i, raw := range f.Args {
			_ = json.Unmarshal(raw, &args[i])
		}
		at := ""
		if f.At != nil {
			at = f.At.Local().Format("15:04:05")
		}

		switch domain.EventName(f.Method) {
		case domain.ReceiveSessionToken:
			if len(args) == 1 {
				c.mu.Lock()
				c.token, _ = args[0].(string)
				c.mu.Unlock()
			}
		case domain.ReceiveGroupMessage:
			color.Cyan.Printf("[%s] %v: %v\n", at, args[0], args[1])
		case domain.ReceivePrivateMessage:
			color.Magenta.Printf("[%s] %v (private): %v\n", at, args[0], args[1])
		case domain.ReceiveSystemMessage:
			color.Gray.Printf("[%s] * %v\n", at, args[0])
		case domain.ReceiveGroupList:
			color.Gray.Printf("[%s] open groups: %v\n", at, args[0])
		default:
			color.Yellow.Printf("[%s] %s %v\n", at, f.Method, args)
		}
	}
}

func printTable[T any](header []string, rows []T, toRow func(T) []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range rows {
		table.Append(toRow(r))
	}
	table.Render()
}
